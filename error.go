package usbproto

import "errors"

// ErrInterfaceNotFound means no interface of the requested class with a
// usable bulk endpoint pair exists on the device.
var ErrInterfaceNotFound = errors.New("usbproto: interface not found")
