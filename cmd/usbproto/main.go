package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	usbproto "github.com/wirebind/go-usbproto"
	"github.com/wirebind/go-usbproto/pkg/msc"
	"github.com/wirebind/go-usbproto/pkg/ptp"
)

var (
	vendor  uint16
	verbose bool
)

func openDevice(path string) (*os.File, *usbproto.Device, error) {
	fd, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, nil, err
	}
	dev, err := usbproto.Open(fd.Fd())
	if err != nil {
		fd.Close()
		return nil, nil, err
	}
	return fd, dev, nil
}

func openMassStorage(path string) (*os.File, *usbproto.Device, *msc.Driver, error) {
	fd, dev, err := openDevice(path)
	if err != nil {
		return nil, nil, nil, err
	}
	drv, err := dev.MassStorage()
	if err != nil {
		dev.Close()
		fd.Close()
		return nil, nil, nil, err
	}
	drv.Debug = verbose
	return fd, dev, drv, nil
}

func listDevices(cmd *cobra.Command, args []string) error {
	devices, err := usbproto.ListDevices(vendor)
	if err != nil {
		return err
	}
	if len(devices) == 0 {
		fmt.Println("No USB devices found")
		return nil
	}
	for _, dev := range devices {
		kind := ""
		if dev.IsMassStorage() {
			kind = " (mass storage)"
		} else if dev.IsStillImage() {
			kind = " (still image)"
		}
		fmt.Printf("%s  %04x:%04x%s\n", dev.Path, dev.VendorID, dev.ProductID, kind)
		if dev.Manufacturer != "" || dev.Product != "" {
			fmt.Printf("  %s %s\n", dev.Manufacturer, dev.Product)
		}
		if dev.Serial != "" {
			fmt.Printf("  Serial: %s\n", dev.Serial)
		}
	}
	return nil
}

func inquiry(cmd *cobra.Command, args []string) error {
	fd, dev, drv, err := openMassStorage(args[0])
	if err != nil {
		return err
	}
	defer fd.Close()
	defer dev.Close()

	inq, err := drv.Inquiry()
	if err != nil {
		return err
	}
	fmt.Println(inq)
	return nil
}

func sense(cmd *cobra.Command, args []string) error {
	fd, dev, drv, err := openMassStorage(args[0])
	if err != nil {
		return err
	}
	defer fd.Close()
	defer dev.Close()

	s, err := drv.RequestSense()
	if err != nil {
		return err
	}
	fmt.Println(s)
	return nil
}

func ptpInfo(cmd *cobra.Command, args []string) error {
	fd, dev, err := openDevice(args[0])
	if err != nil {
		return err
	}
	defer fd.Close()
	defer dev.Close()

	drv, err := dev.StillImage()
	if err != nil {
		return err
	}
	drv.Debug = verbose

	if err := drv.OpenSession(1); err != nil && !errors.Is(err, ptp.ResponseError(ptp.ResponseSessionAlreadyOpen)) {
		return err
	}
	defer drv.CloseSession()

	rc, data, err := drv.SendReadCommand(ptp.CodeGetDeviceInfo, nil)
	if err != nil {
		return err
	}
	if err := ptp.CheckResponse(rc); err != nil {
		return err
	}
	fmt.Printf("GetDeviceInfo: %d bytes\n", len(data))
	return nil
}

var rootCmd = &cobra.Command{
	Use:   "usbproto",
	Short: "Talk to USB mass-storage and PTP/MTP devices",
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log every wrapper and container exchanged")
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	list := &cobra.Command{
		Use:   "list",
		Short: "List attached USB devices",
		Args:  cobra.NoArgs,
		RunE:  listDevices,
	}
	list.Flags().Uint16Var(&vendor, "vendor", 0, "Filter by vendor id")
	rootCmd.AddCommand(list)

	rootCmd.AddCommand(&cobra.Command{
		Use:   "inquiry <device path>",
		Short: "Run SCSI INQUIRY against a mass-storage device",
		Args:  cobra.ExactArgs(1),
		RunE:  inquiry,
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "sense <device path>",
		Short: "Run REQUEST SENSE against a mass-storage device",
		Args:  cobra.ExactArgs(1),
		RunE:  sense,
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "ptp-info <device path>",
		Short: "Open a PTP session and fetch the raw device info dataset",
		Args:  cobra.ExactArgs(1),
		RunE:  ptpInfo,
	})
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
