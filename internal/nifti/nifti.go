// Package nifti reads single-file NIfTI-1 images (.nii and .nii.gz).
//
// Only what in-process interfaces need is supported: the header, the stored
// voxel data of the common numeric datatypes, optional scaling, and a few
// reductions over it. Header extensions are skipped.
package nifti

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/exascience/pargo/parallel"
	"github.com/klauspost/compress/gzip"
)

// Header is the 348-byte NIfTI-1 header.
type Header struct {
	SizeofHdr          int32
	UnusedDataType     [10]int8
	UnusedDbName       [18]int8
	UnusedExtents      int32
	UnusedSessionError int16
	UnusedRegular      int8
	DimInfo            int8
	Dim                [8]int16
	IntentP1           float32
	IntentP2           float32
	IntentP3           float32
	IntentCode         int16
	Datatype           int16
	Bitpix             int16
	SliceStart         int16
	Pixdim             [8]float32
	VoxOffset          float32
	SclSlope           float32
	SclInter           float32
	SliceEnd           int16
	SliceCode          int8
	XyztUnits          int8
	CalMax             float32
	CalMin             float32
	SliceDuration      float32
	Toffset            float32
	UnusedGlmax        int32
	UnusedGlmin        int32
	Descrip            [80]byte
	AuxFile            [24]byte
	QformCode          int16
	SformCode          int16
	QuaternB           float32
	QuaternC           float32
	QuaternD           float32
	QoffsetX           float32
	QoffsetY           float32
	QoffsetZ           float32
	SrowX              [4]float32
	SrowY              [4]float32
	SrowZ              [4]float32
	IntentName         [16]byte
	Magic              [4]byte
}

const (
	headerSize = 348
	// dataOffset is the minimum voxel offset of a single-file image: the
	// header plus the 4-byte extension flag.
	dataOffset = 352
)

// Datatype codes.
const (
	DTUint8   int16 = 2
	DTInt16   int16 = 4
	DTInt32   int16 = 8
	DTFloat32 int16 = 16
	DTFloat64 int16 = 64
	DTInt8    int16 = 256
	DTUint16  int16 = 512
	DTUint32  int16 = 768
)

var singleFileMagic = [4]byte{'n', '+', '1', 0}

// MaxVoxels bounds the number of voxels Read accepts, so a corrupt header
// cannot request an arbitrarily large image.
const MaxVoxels = 1 << 30

// chunkVoxels is how many voxels readVoxels decodes per read.
const chunkVoxels = 1 << 16

// Image is a decoded NIfTI-1 image.
type Image struct {
	Header Header
	Order  binary.ByteOrder
	// Data holds the stored voxel values in file order. ApplyScaling maps
	// them through scl_slope and scl_inter.
	Data []float64
}

// Dims returns the size of each used dimension.
func (h *Header) Dims() []int {
	n := int(h.Dim[0])
	dims := make([]int, n)
	for i := 0; i < n; i++ {
		dims[i] = int(h.Dim[i+1])
	}
	return dims
}

// NumVoxels is the product of the used dimensions. It errors when a
// dimension is not positive or the product exceeds MaxVoxels.
func (h *Header) NumVoxels() (int, error) {
	total := 1
	for i, d := range h.Dims() {
		if d < 1 {
			return 0, fmt.Errorf("invalid size %d for dimension %d", d, i+1)
		}
		if total > MaxVoxels/d {
			return 0, fmt.Errorf("image dimensions %v exceed %d voxels", h.Dims(), MaxVoxels)
		}
		total *= d
	}
	return total, nil
}

// Description returns the descrip field as a string.
func (h *Header) Description() string {
	return strings.TrimRight(string(h.Descrip[:]), "\x00")
}

// Open reads the image at path, decompressing it when the name ends in .gz.
// For uncompressed files the header is checked against the file size before
// any voxel is read.
func Open(path string) (*Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	size := int64(-1)
	var r io.Reader = bufio.NewReader(f)
	if strings.HasSuffix(path, ".gz") {
		zr, err := gzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", path, err)
		}
		defer zr.Close()
		r = zr
	} else if info, err := f.Stat(); err == nil {
		size = info.Size()
	}
	img, err := read(r, size)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return img, nil
}

// Read decodes an uncompressed single-file image from r.
func Read(r io.Reader) (*Image, error) {
	return read(r, -1)
}

// read decodes an image. size is the total stream length, or -1 if unknown.
func read(r io.Reader, size int64) (*Image, error) {
	raw := make([]byte, headerSize)
	if _, err := io.ReadFull(r, raw); err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	var h Header
	var order binary.ByteOrder = binary.LittleEndian
	if err := binary.Read(bytes.NewReader(raw), order, &h); err != nil {
		return nil, err
	}
	if h.SizeofHdr != headerSize {
		order = binary.BigEndian
		if err := binary.Read(bytes.NewReader(raw), order, &h); err != nil {
			return nil, err
		}
	}
	if err := validate(&h); err != nil {
		return nil, err
	}
	n, err := h.NumVoxels()
	if err != nil {
		return nil, err
	}
	width, decode, err := decoder(h.Datatype, order)
	if err != nil {
		return nil, err
	}

	offset := int64(h.VoxOffset)
	if offset < dataOffset {
		offset = dataOffset
	}
	if size >= 0 {
		if need := offset + int64(n)*int64(width); need > size {
			return nil, fmt.Errorf("truncated image: header needs %d bytes, file has %d", need, size)
		}
	}
	if _, err := io.CopyN(io.Discard, r, offset-headerSize); err != nil {
		return nil, fmt.Errorf("failed to skip to voxel data: %w", err)
	}

	data, err := readVoxels(r, n, width, decode)
	if err != nil {
		return nil, err
	}
	return &Image{Header: h, Order: order, Data: data}, nil
}

// Scaled reports whether the header maps stored values to other values.
func (h *Header) Scaled() bool {
	return h.SclSlope != 0 && !(h.SclSlope == 1 && h.SclInter == 0)
}

// ApplyScaling replaces the stored values by scl_slope * value + scl_inter.
// A zero slope means no scaling.
func (img *Image) ApplyScaling() {
	if !img.Header.Scaled() {
		return
	}
	slope, inter := float64(img.Header.SclSlope), float64(img.Header.SclInter)
	for i := range img.Data {
		img.Data[i] = img.Data[i]*slope + inter
	}
}

func validate(h *Header) error {
	switch {
	case h.SizeofHdr != headerSize:
		return errors.New("not a NIfTI-1 file: invalid header size")
	case h.Magic != singleFileMagic:
		return errors.New("unsupported NIfTI-1 file: data must be stored in the same file as the header")
	case h.Dim[0] < 1 || h.Dim[0] > 7:
		return fmt.Errorf("invalid dimension count %d", h.Dim[0])
	case h.VoxOffset < 0 || math.IsNaN(float64(h.VoxOffset)) || h.VoxOffset > math.MaxInt32:
		return fmt.Errorf("invalid voxel offset %v", h.VoxOffset)
	}
	return nil
}

// decoder returns the byte width of one voxel of datatype and a function
// decoding it.
func decoder(datatype int16, order binary.ByteOrder) (int, func([]byte) float64, error) {
	switch datatype {
	case DTUint8:
		return 1, func(b []byte) float64 { return float64(b[0]) }, nil
	case DTInt8:
		return 1, func(b []byte) float64 { return float64(int8(b[0])) }, nil
	case DTInt16:
		return 2, func(b []byte) float64 { return float64(int16(order.Uint16(b))) }, nil
	case DTUint16:
		return 2, func(b []byte) float64 { return float64(order.Uint16(b)) }, nil
	case DTInt32:
		return 4, func(b []byte) float64 { return float64(int32(order.Uint32(b))) }, nil
	case DTUint32:
		return 4, func(b []byte) float64 { return float64(order.Uint32(b)) }, nil
	case DTFloat32:
		return 4, func(b []byte) float64 { return float64(math.Float32frombits(order.Uint32(b))) }, nil
	case DTFloat64:
		return 8, func(b []byte) float64 { return math.Float64frombits(order.Uint64(b)) }, nil
	default:
		return 0, nil, fmt.Errorf("unsupported datatype %d", datatype)
	}
}

// readVoxels decodes n voxels chunk by chunk, so memory grows with the data
// actually present rather than with what the header claims.
func readVoxels(r io.Reader, n, width int, decode func([]byte) float64) ([]float64, error) {
	out := make([]float64, 0, min(n, chunkVoxels))
	buf := make([]byte, min(n, chunkVoxels)*width)
	for len(out) < n {
		k := min(n-len(out), chunkVoxels)
		chunk := buf[:k*width]
		if _, err := io.ReadFull(r, chunk); err != nil {
			return nil, fmt.Errorf("failed to read %d voxels after %d: %w", n, len(out), err)
		}
		for i := 0; i < k; i++ {
			out = append(out, decode(chunk[i*width:]))
		}
	}
	return out, nil
}

// CountAbove counts the voxels whose value is greater than threshold. NaN
// voxels are never counted.
func (img *Image) CountAbove(threshold float64) int {
	data := img.Data
	return parallel.RangeReduceInt(0, len(data), 0,
		func(low, high int) int {
			var n int
			for i := low; i < high; i++ {
				if data[i] > threshold {
					n++
				}
			}
			return n
		},
		func(x, y int) int { return x + y },
	)
}

// VoxelVolume is the volume of one voxel in the units of pixdim.
func (img *Image) VoxelVolume() float64 {
	v := 1.0
	for i := 1; i <= 3 && i <= int(img.Header.Dim[0]); i++ {
		v *= math.Abs(float64(img.Header.Pixdim[i]))
	}
	return v
}

// Write encodes a float32 image with the given dimensions and voxel sizes.
// A .gz suffix on path compresses the output.
func Write(path string, dims []int, pixdim []float32, data []float32) error {
	return WriteScaled(path, dims, pixdim, data, 1, 0)
}

// WriteScaled is Write with the scl_slope and scl_inter header fields set.
func WriteScaled(path string, dims []int, pixdim []float32, data []float32, slope, inter float32) error {
	if len(dims) < 1 || len(dims) > 7 {
		return fmt.Errorf("invalid dimension count %d", len(dims))
	}
	want := 1
	for _, d := range dims {
		want *= d
	}
	if want != len(data) {
		return fmt.Errorf("data has %d voxels, dimensions need %d", len(data), want)
	}

	h := Header{
		SizeofHdr: headerSize,
		Datatype:  DTFloat32,
		Bitpix:    32,
		VoxOffset: dataOffset,
		SclSlope:  slope,
		SclInter:  inter,
		Magic:     singleFileMagic,
	}
	h.Dim[0] = int16(len(dims))
	h.Pixdim[0] = 1
	for i, d := range dims {
		h.Dim[i+1] = int16(d)
		h.Pixdim[i+1] = 1
		if i < len(pixdim) {
			h.Pixdim[i+1] = pixdim[i]
		}
	}

	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, &h); err != nil {
		return err
	}
	buf.Write(make([]byte, dataOffset-headerSize))
	if err := binary.Write(&buf, binary.LittleEndian, data); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if strings.HasSuffix(path, ".gz") {
		zw := gzip.NewWriter(f)
		if _, err := zw.Write(buf.Bytes()); err != nil {
			return err
		}
		if err := zw.Close(); err != nil {
			return err
		}
	} else if _, err := f.Write(buf.Bytes()); err != nil {
		return err
	}
	return f.Close()
}
