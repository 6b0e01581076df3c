//go:build linux

package ble

import "tinygo.org/x/bluetooth"

func newAdapter(name string) *bluetooth.Adapter {
	return bluetooth.NewAdapter(name)
}
