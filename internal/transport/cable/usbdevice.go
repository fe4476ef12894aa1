package cable

import (
	"context"

	"github.com/karalabe/usb"
	"github.com/sunbay-developer/taplink-sdk-go/internal/errs"
	"github.com/sunbay-developer/taplink-sdk-go/internal/transport"
)

// USBProber opens the first attached device matching vendorID/productID
// for USB_AOA and USB_VSP protocols. AUTO falls back to the same pair,
// since both of Tapro's USB modes enumerate under one vendor/product id.
type USBProber struct {
	VendorID  uint16
	ProductID uint16
}

func NewUSBProber(vendorID, productID uint16) *USBProber {
	return &USBProber{VendorID: vendorID, ProductID: productID}
}

func (p *USBProber) Open(ctx context.Context, protocol transport.CableProtocol) (Device, error) {
	if protocol == transport.CableProtocolRS232 {
		return nil, errs.New(errs.CodeCableUnsupportedProto, "RS232 requires a serial prober, not USBProber")
	}
	infos, err := usb.Enumerate(p.VendorID, p.ProductID)
	if err != nil {
		return nil, err
	}
	if len(infos) == 0 {
		return nil, errs.New(errs.CodeCableNotAttached, "no Tapro USB device found")
	}
	dev, err := infos[0].Open()
	if err != nil {
		return nil, errs.New(errs.CodeCablePermissionDenied, err.Error())
	}
	return &usbDeviceAdapter{dev: dev}, nil
}

type usbDeviceAdapter struct {
	dev usb.Device
}

func (a *usbDeviceAdapter) Read(p []byte) (int, error)  { return a.dev.Read(p) }
func (a *usbDeviceAdapter) Write(p []byte) (int, error) { return a.dev.Write(p) }
func (a *usbDeviceAdapter) Close() error                { return a.dev.Close() }
