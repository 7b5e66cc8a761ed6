package payment

import (
	"encoding/base64"

	"github.com/skip2/go-qrcode"
)

const qrSize = 256

// qrDataURL renders content as a PNG QR code inlined as a data URL.
func qrDataURL(content string) (string, error) {
	png, err := qrcode.Encode(content, qrcode.Medium, qrSize)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}
