package cmd

import (
	"fmt"
	"strings"

	"github.com/skip2/go-qrcode"
)

// renderQR draws content as a QR code in half-block characters, two
// modules per text row, dark modules on a light terminal background.
func renderQR(content string) (string, error) {
	qr, err := qrcode.New(content, qrcode.Medium)
	if err != nil {
		return "", fmt.Errorf("failed to encode QR code: %w", err)
	}
	return halfBlocks(qr.Bitmap()), nil
}

func halfBlocks(bitmap [][]bool) string {
	var sb strings.Builder
	for y := 0; y < len(bitmap); y += 2 {
		for x := range bitmap[y] {
			top := bitmap[y][x]
			bottom := y+1 < len(bitmap) && bitmap[y+1][x]
			switch {
			case top && bottom:
				sb.WriteString("█")
			case top:
				sb.WriteString("▀")
			case bottom:
				sb.WriteString("▄")
			default:
				sb.WriteString(" ")
			}
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
