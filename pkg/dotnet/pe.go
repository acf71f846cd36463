package dotnet

import (
	"encoding/binary"

	"github.com/nuspect/nuspect/pkg/errors"
)

// PE file constants.
const (
	dosMagic     = 0x5A4D     // "MZ"
	peSignature  = 0x00004550 // "PE\0\0"
	optMagicPE32 = 0x10B
	optMagic64   = 0x20B

	// comDescriptorDir is the data directory slot holding the CLI header.
	comDescriptorDir = 14

	// cor20MinSize is the minimum CLI header size.
	cor20MinSize = 72
)

// section is one PE section header, used to map RVAs to file offsets.
type section struct {
	virtualAddress uint32
	virtualSize    uint32
	rawOffset      uint32
	rawSize        uint32
}

// readMetadata walks a PE image to the CLI metadata root and returns the raw
// metadata bytes. It fails for native (non-.NET) images and for images whose
// structure is truncated or inconsistent.
func readMetadata(image []byte) ([]byte, error) {
	if len(image) < 0x40 || binary.LittleEndian.Uint16(image) != dosMagic {
		return nil, errors.New(errors.ErrCodePartialMetadata, "not a PE image")
	}

	peOff := int(binary.LittleEndian.Uint32(image[0x3C:]))
	if peOff < 0 || peOff+24 > len(image) ||
		binary.LittleEndian.Uint32(image[peOff:]) != peSignature {
		return nil, errors.New(errors.ErrCodePartialMetadata, "missing PE signature")
	}

	numSections := int(binary.LittleEndian.Uint16(image[peOff+6:]))
	optSize := int(binary.LittleEndian.Uint16(image[peOff+20:]))
	optOff := peOff + 24
	if optOff+optSize > len(image) || optSize < 2 {
		return nil, errors.New(errors.ErrCodePartialMetadata, "truncated optional header")
	}

	// The data directory array sits at a magic-dependent offset inside the
	// optional header (PE32 vs PE32+ differ in the size of ImageBase etc).
	var dirBase int
	switch binary.LittleEndian.Uint16(image[optOff:]) {
	case optMagicPE32:
		dirBase = optOff + 96
	case optMagic64:
		dirBase = optOff + 112
	default:
		return nil, errors.New(errors.ErrCodePartialMetadata, "unknown optional header magic")
	}

	numDirs := int(binary.LittleEndian.Uint32(image[dirBase-4:]))
	if numDirs <= comDescriptorDir {
		return nil, errors.New(errors.ErrCodePartialMetadata, "no CLI header directory: native image")
	}
	dirOff := dirBase + comDescriptorDir*8
	if dirOff+8 > len(image) {
		return nil, errors.New(errors.ErrCodePartialMetadata, "truncated data directories")
	}
	cliRVA := binary.LittleEndian.Uint32(image[dirOff:])
	cliSize := binary.LittleEndian.Uint32(image[dirOff+4:])
	if cliRVA == 0 || cliSize < cor20MinSize {
		return nil, errors.New(errors.ErrCodePartialMetadata, "no CLI header: native image")
	}

	sections, err := readSections(image, optOff+optSize, numSections)
	if err != nil {
		return nil, err
	}

	cliOff, ok := rvaToOffset(sections, cliRVA)
	if !ok || int(cliOff)+cor20MinSize > len(image) {
		return nil, errors.New(errors.ErrCodePartialMetadata, "CLI header outside image")
	}

	// COR20 header: metadata directory at offset 8.
	metaRVA := binary.LittleEndian.Uint32(image[cliOff+8:])
	metaSize := binary.LittleEndian.Uint32(image[cliOff+12:])
	if metaRVA == 0 || metaSize == 0 {
		return nil, errors.New(errors.ErrCodePartialMetadata, "empty metadata directory")
	}

	metaOff, ok := rvaToOffset(sections, metaRVA)
	if !ok {
		return nil, errors.New(errors.ErrCodePartialMetadata, "metadata outside mapped sections")
	}
	end := int(metaOff) + int(metaSize)
	if end < 0 || end > len(image) {
		return nil, errors.New(errors.ErrCodePartialMetadata, "metadata extends past end of image")
	}
	return image[metaOff:end], nil
}

func readSections(image []byte, tableOff, count int) ([]section, error) {
	const sectionHeaderSize = 40
	if tableOff+count*sectionHeaderSize > len(image) {
		return nil, errors.New(errors.ErrCodePartialMetadata, "truncated section table")
	}
	sections := make([]section, count)
	for i := range sections {
		off := tableOff + i*sectionHeaderSize
		sections[i] = section{
			virtualSize:    binary.LittleEndian.Uint32(image[off+8:]),
			virtualAddress: binary.LittleEndian.Uint32(image[off+12:]),
			rawSize:        binary.LittleEndian.Uint32(image[off+16:]),
			rawOffset:      binary.LittleEndian.Uint32(image[off+20:]),
		}
	}
	return sections, nil
}

// rvaToOffset maps a relative virtual address to a file offset through the
// section table.
func rvaToOffset(sections []section, rva uint32) (uint32, bool) {
	for _, s := range sections {
		size := s.virtualSize
		if s.rawSize > size {
			size = s.rawSize
		}
		if rva >= s.virtualAddress && rva < s.virtualAddress+size {
			delta := rva - s.virtualAddress
			if delta >= s.rawSize {
				return 0, false // lives in the zero-padded tail, not on disk
			}
			return s.rawOffset + delta, true
		}
	}
	return 0, false
}
