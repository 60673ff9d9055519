package stamp

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// maxImageSide bounds the embedded pixel size; larger signatures are resampled.
const maxImageSide = 1200

// signatureImage is a decoded signature ready to embed as an image XObject.
type signatureImage struct {
	Width, Height int // natural pixel size, used for placement
	pixW, pixH    int // embedded pixel size
	colorSpace    string
	filter        string
	data          []byte
	alpha         []byte // Flate-compressed DeviceGray soft mask, nil when opaque
}

// loadImage detects the format from the bytes themselves. JPEG data is embedded
// as is; other formats are decoded to RGB with an optional soft mask.
func loadImage(raw []byte) (*signatureImage, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty image", ErrUnsupportedImage)
	}
	mime := mimetype.Detect(raw).String()
	switch mime {
	case "image/jpeg", "image/png", "image/gif", "image/webp":
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedImage, mime)
	}

	if mime == "image/jpeg" {
		cfg, err := jpeg.DecodeConfig(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
		}
		cs := ""
		switch cfg.ColorModel {
		case color.GrayModel:
			cs = "DeviceGray"
		case color.YCbCrModel:
			cs = "DeviceRGB"
		}
		if cs != "" && cfg.Width <= maxImageSide && cfg.Height <= maxImageSide {
			return &signatureImage{
				Width: cfg.Width, Height: cfg.Height,
				pixW: cfg.Width, pixH: cfg.Height,
				colorSpace: cs, filter: "DCTDecode", data: raw,
			}, nil
		}
	}

	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}
	return encodeRGB(img)
}

func encodeRGB(img image.Image) (*signatureImage, error) {
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, fmt.Errorf("%w: empty image bounds", ErrUnsupportedImage)
	}
	out := &signatureImage{Width: b.Dx(), Height: b.Dy(), colorSpace: "DeviceRGB", filter: "FlateDecode"}

	src := img
	if b.Dx() > maxImageSide || b.Dy() > maxImageSide {
		scale := float64(maxImageSide) / float64(max(b.Dx(), b.Dy()))
		w, h := max(1, int(float64(b.Dx())*scale)), max(1, int(float64(b.Dy())*scale))
		dst := image.NewNRGBA(image.Rect(0, 0, w, h))
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
		src = dst
	}
	sb := src.Bounds()
	out.pixW, out.pixH = sb.Dx(), sb.Dy()

	rgb := make([]byte, 0, out.pixW*out.pixH*3)
	alpha := make([]byte, 0, out.pixW*out.pixH)
	opaque := true
	for y := sb.Min.Y; y < sb.Max.Y; y++ {
		for x := sb.Min.X; x < sb.Max.X; x++ {
			c := color.NRGBAModel.Convert(src.At(x, y)).(color.NRGBA)
			rgb = append(rgb, c.R, c.G, c.B)
			alpha = append(alpha, c.A)
			if c.A != 0xff {
				opaque = false
			}
		}
	}
	var err error
	if out.data, err = deflate(rgb); err != nil {
		return nil, err
	}
	if !opaque {
		if out.alpha, err = deflate(alpha); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func deflate(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
