package main

import (
	"fmt"
	"os"

	"github.com/gdamore/tcell/v2"
	usb "github.com/kevmo314/go-usb"
	"github.com/rivo/tview"

	usbproto "github.com/wirebind/go-usbproto"
)

func main() {
	if len(os.Args) < 2 {
		panic("usage: ./inspect <usb device path>")
	}
	path := os.Args[1]

	fd, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		panic(err)
	}
	defer fd.Close()

	dev, err := usbproto.Open(fd.Fd())
	if err != nil {
		panic(err)
	}
	defer dev.Close()

	config, err := dev.Handle().GetActiveConfigDescriptor()
	if err != nil {
		panic(err)
	}

	app := tview.NewApplication()

	ifaces := tview.NewList()
	ifaces.SetBorder(true).SetTitle("Interfaces")

	endpoints := tview.NewList()
	endpoints.SetBorder(true).SetTitle("Endpoints")

	for _, iface := range config.Interfaces {
		for _, alt := range iface.AltSettings {
			alt := alt
			ifaces.AddItem(
				fmt.Sprintf("Interface %d (alt %d)", alt.InterfaceNumber, alt.AlternateSetting),
				classTitle(alt.InterfaceClass),
				0, func() {
					endpoints.Clear()
					for _, ep := range alt.Endpoints {
						endpoints.AddItem(endpointTitle(ep), endpointSubtitle(ep), 0, nil)
					}
					app.SetFocus(endpoints)
				})
		}
	}

	flex := tview.NewFlex().
		AddItem(ifaces, 0, 1, true).
		AddItem(endpoints, 0, 2, false)

	app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if event.Key() == tcell.KeyEscape {
			if app.GetFocus() == endpoints {
				app.SetFocus(ifaces)
				return nil
			}
			app.Stop()
			return nil
		}
		return event
	})

	if err := app.SetRoot(flex, true).Run(); err != nil {
		panic(err)
	}
}

func classTitle(class uint8) string {
	switch class {
	case usbproto.ClassStillImage:
		return "Still Image (PTP/MTP)"
	case usbproto.ClassMassStorage:
		return "Mass Storage"
	case 0x03:
		return "HID"
	case 0x0e:
		return "Video"
	case 0x01:
		return "Audio"
	case 0xff:
		return "Vendor Specific"
	default:
		return fmt.Sprintf("Class %#02x", class)
	}
}

func endpointTitle(ep usb.Endpoint) string {
	dir := "OUT"
	if ep.EndpointAddr&0x80 != 0 {
		dir = "IN"
	}
	return fmt.Sprintf("%#02x %s %s", ep.EndpointAddr, dir, transferType(ep.Attributes))
}

func endpointSubtitle(ep usb.Endpoint) string {
	return fmt.Sprintf("Max Packet Size: %d, Interval: %d", ep.MaxPacketSize, ep.Interval)
}

func transferType(attributes uint8) string {
	switch attributes & 0x03 {
	case 0x00:
		return "Control"
	case 0x01:
		return "Isochronous"
	case 0x02:
		return "Bulk"
	default:
		return "Interrupt"
	}
}
