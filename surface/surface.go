package surface

import (
	"compress/zlib"
	"encoding/binary"
	"fmt"
	"image"
	imgcolor "image/color"
	"image/png"
	"io"
	"math"
	"os"

	"whitted/color"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// dataLayoutVersion identifies the pixel layout written after the header.
const dataLayoutVersion = 1

const (
	// MaxHeaderLength bounds the encoded header accepted by Read.
	MaxHeaderLength = 1 << 12

	// MaxPixels bounds the width*height of a surface accepted by Read.
	MaxPixels = 1 << 26
)

// Surface is a row-major buffer of rendered pixels.
//
// Set may be called concurrently as long as no two callers write the same
// pixel; every pixel occupies its own slot.
type Surface struct {
	Width, Height int
	Pixels        []color.T
}

func New(width, height int) *Surface {
	return &Surface{
		Width:  width,
		Height: height,
		Pixels: make([]color.T, width*height),
	}
}

func (s *Surface) index(x, y int) int {
	return y*s.Width + x
}

func (s *Surface) Set(x, y int, c color.T) {
	s.Pixels[s.index(x, y)] = c
}

func (s *Surface) Pixel(x, y int) color.T {
	return s.Pixels[s.index(x, y)]
}

// Row returns the slice holding row y.  Writes through it land in the surface.
func (s *Surface) Row(y int) []color.T {
	return s.Pixels[y*s.Width : (y+1)*s.Width]
}

func (s *Surface) ColorModel() imgcolor.Model {
	return imgcolor.NRGBAModel
}

func (s *Surface) Bounds() image.Rectangle {
	return image.Rect(0, 0, s.Width, s.Height)
}

func (s *Surface) At(x, y int) imgcolor.Color {
	if x < 0 || y < 0 || x >= s.Width || y >= s.Height {
		return imgcolor.NRGBA{}
	}
	return s.Pixel(x, y).RGBA8()
}

// WritePNG encodes the surface as a PNG image.
func WritePNG(s *Surface, w io.Writer) error {
	if err := png.Encode(w, s); err != nil {
		return fmt.Errorf("while encoding png: %w", err)
	}
	return nil
}

func WritePNGToFile(s *Surface, name string) error {
	f, err := os.Create(name)
	if err != nil {
		return fmt.Errorf("while creating file: %w", err)
	}

	if err := WritePNG(s, f); err != nil {
		f.Close()
		return err
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("while closing file: %w", err)
	}
	return nil
}

// Write stores the surface at full precision.
//
// The format is an 8-byte little-endian header length, a protobuf-encoded
// header, then a zlib stream holding the R, G, B channels of every pixel as
// little-endian float32s in row-major order.
func Write(s *Surface, w io.Writer) error {
	hdr, err := structpb.NewStruct(map[string]interface{}{
		"width":             s.Width,
		"height":            s.Height,
		"dataLayoutVersion": dataLayoutVersion,
	})
	if err != nil {
		return fmt.Errorf("while building header: %w", err)
	}

	hdrBytes, err := proto.Marshal(hdr)
	if err != nil {
		return fmt.Errorf("while marshaling header: %w", err)
	}

	headerLengthBytes := make([]byte, 8)
	binary.LittleEndian.PutUint64(headerLengthBytes, uint64(len(hdrBytes)))
	if _, err := w.Write(headerLengthBytes); err != nil {
		return fmt.Errorf("while writing header length: %w", err)
	}

	if _, err := w.Write(hdrBytes); err != nil {
		return fmt.Errorf("while writing header: %w", err)
	}

	channels := make([]float32, 0, 3*len(s.Pixels))
	for _, p := range s.Pixels {
		channels = append(channels, float32(p.R()), float32(p.G()), float32(p.B()))
	}

	zipWriter := zlib.NewWriter(w)

	if err := binary.Write(zipWriter, binary.LittleEndian, channels); err != nil {
		return fmt.Errorf("while writing pixels: %w", err)
	}

	if err := zipWriter.Close(); err != nil {
		return fmt.Errorf("while closing zip writer: %w", err)
	}

	return nil
}

func headerInt(hdr *structpb.Struct, key string) (int, error) {
	v, ok := hdr.GetFields()[key]
	if !ok {
		return 0, fmt.Errorf("header is missing %q", key)
	}
	n, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return 0, fmt.Errorf("header field %q is not a number", key)
	}
	if n.NumberValue != math.Trunc(n.NumberValue) || math.Abs(n.NumberValue) > math.MaxInt32 {
		return 0, fmt.Errorf("header field %q is not a valid integer: %v", key, n.NumberValue)
	}
	return int(n.NumberValue), nil
}

// Read parses a surface stored by Write.
func Read(in io.Reader) (*Surface, error) {
	var headerLength uint64
	if err := binary.Read(in, binary.LittleEndian, &headerLength); err != nil {
		return nil, fmt.Errorf("while reading header length: %w", err)
	}

	if headerLength > MaxHeaderLength {
		return nil, fmt.Errorf("header length %d exceeds limit %d", headerLength, MaxHeaderLength)
	}

	headerBytes, err := io.ReadAll(io.LimitReader(in, int64(headerLength)))
	if err != nil {
		return nil, fmt.Errorf("while reading header bytes: %w", err)
	}
	if uint64(len(headerBytes)) != headerLength {
		return nil, fmt.Errorf("while reading header bytes: %w", io.ErrUnexpectedEOF)
	}

	hdr := &structpb.Struct{}
	if err := proto.Unmarshal(headerBytes, hdr); err != nil {
		return nil, fmt.Errorf("while unmarshaling header: %w", err)
	}

	version, err := headerInt(hdr, "dataLayoutVersion")
	if err != nil {
		return nil, err
	}
	if version != dataLayoutVersion {
		return nil, fmt.Errorf("bad data layout version: %v", version)
	}

	width, err := headerInt(hdr, "width")
	if err != nil {
		return nil, err
	}
	height, err := headerInt(hdr, "height")
	if err != nil {
		return nil, err
	}
	if width < 0 || height < 0 {
		return nil, fmt.Errorf("bad dimensions %dx%d", width, height)
	}
	if int64(width)*int64(height) > MaxPixels {
		return nil, fmt.Errorf("dimensions %dx%d exceed limit of %d pixels", width, height, MaxPixels)
	}

	zipReader, err := zlib.NewReader(in)
	if err != nil {
		return nil, fmt.Errorf("while opening zip reader: %w", err)
	}
	defer zipReader.Close()

	channels := make([]float32, 3*width*height)
	if err := binary.Read(zipReader, binary.LittleEndian, channels); err != nil {
		return nil, fmt.Errorf("while reading pixels: %w", err)
	}

	s := New(width, height)
	for i := range s.Pixels {
		c, err := color.New(float64(channels[3*i]), float64(channels[3*i+1]), float64(channels[3*i+2]))
		if err != nil {
			return nil, fmt.Errorf("while decoding pixel %d: %w", i, err)
		}
		s.Pixels[i] = c
	}

	return s, nil
}
