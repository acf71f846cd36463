package dotnet

import (
	"bytes"
	"encoding/binary"

	"github.com/nuspect/nuspect/pkg/errors"
)

// Metadata table numbers (ECMA-335 II.22). Only a few are decoded, but every
// table's row size must be computable to locate the ones that matter.
const (
	tblModule                 = 0x00
	tblTypeRef                = 0x01
	tblTypeDef                = 0x02
	tblFieldPtr               = 0x03
	tblField                  = 0x04
	tblMethodPtr              = 0x05
	tblMethodDef              = 0x06
	tblParamPtr               = 0x07
	tblParam                  = 0x08
	tblInterfaceImpl          = 0x09
	tblMemberRef              = 0x0A
	tblConstant               = 0x0B
	tblCustomAttribute        = 0x0C
	tblFieldMarshal           = 0x0D
	tblDeclSecurity           = 0x0E
	tblClassLayout            = 0x0F
	tblFieldLayout            = 0x10
	tblStandAloneSig          = 0x11
	tblEventMap               = 0x12
	tblEventPtr               = 0x13
	tblEvent                  = 0x14
	tblPropertyMap            = 0x15
	tblPropertyPtr            = 0x16
	tblProperty               = 0x17
	tblMethodSemantics        = 0x18
	tblMethodImpl             = 0x19
	tblModuleRef              = 0x1A
	tblTypeSpec               = 0x1B
	tblImplMap                = 0x1C
	tblFieldRVA               = 0x1D
	tblENCLog                 = 0x1E
	tblENCMap                 = 0x1F
	tblAssembly               = 0x20
	tblAssemblyProcessor      = 0x21
	tblAssemblyOS             = 0x22
	tblAssemblyRef            = 0x23
	tblAssemblyRefProcessor   = 0x24
	tblAssemblyRefOS          = 0x25
	tblFile                   = 0x26
	tblExportedType           = 0x27
	tblManifestResource       = 0x28
	tblNestedClass            = 0x29
	tblGenericParam           = 0x2A
	tblMethodSpec             = 0x2B
	tblGenericParamConstraint = 0x2C

	numTables = 0x2D
)

// TypeDef flag bits (ECMA-335 II.23.1.15).
const (
	tdVisibilityMask = 0x7
	tdPublic         = 0x1
	tdInterface      = 0x20
	tdAbstract       = 0x80
	tdSealed         = 0x100
)

// Column kinds for the declarative table schemas.
type colKind int

const (
	colU16 colKind = iota
	colU32
	colString // #Strings heap index
	colGUID   // #GUID heap index
	colBlob   // #Blob heap index
	colIndex  // simple index into one table (arg = table number)
	colCoded  // coded index (arg = coded group number)
)

type col struct {
	kind colKind
	arg  int
}

// Coded index groups (ECMA-335 II.24.2.6). Slot order is significant; -1
// marks slots the standard leaves unused.
type codedGroup struct {
	tagBits int
	tables  []int
}

const (
	cgTypeDefOrRef = iota
	cgHasConstant
	cgHasCustomAttribute
	cgHasFieldMarshal
	cgHasDeclSecurity
	cgMemberRefParent
	cgHasSemantics
	cgMethodDefOrRef
	cgMemberForwarded
	cgImplementation
	cgCustomAttributeType
	cgResolutionScope
	cgTypeOrMethodDef
)

var codedGroups = map[int]codedGroup{
	cgTypeDefOrRef:    {2, []int{tblTypeDef, tblTypeRef, tblTypeSpec}},
	cgHasConstant:     {2, []int{tblField, tblParam, tblProperty}},
	cgHasFieldMarshal: {1, []int{tblField, tblParam}},
	cgHasDeclSecurity: {2, []int{tblTypeDef, tblMethodDef, tblAssembly}},
	cgMemberRefParent: {3, []int{tblTypeDef, tblTypeRef, tblModuleRef, tblMethodDef, tblTypeSpec}},
	cgHasSemantics:    {1, []int{tblEvent, tblProperty}},
	cgMethodDefOrRef:  {1, []int{tblMethodDef, tblMemberRef}},
	cgMemberForwarded: {1, []int{tblField, tblMethodDef}},
	cgImplementation:  {2, []int{tblFile, tblAssemblyRef, tblExportedType}},
	cgCustomAttributeType: {3, []int{-1, -1, tblMethodDef, tblMemberRef, -1}},
	cgResolutionScope: {2, []int{tblModule, tblModuleRef, tblAssemblyRef, tblTypeRef}},
	cgTypeOrMethodDef: {1, []int{tblTypeDef, tblMethodDef}},
	cgHasCustomAttribute: {5, []int{
		tblMethodDef, tblField, tblTypeRef, tblTypeDef, tblParam, tblInterfaceImpl,
		tblMemberRef, tblModule, tblDeclSecurity, tblProperty, tblEvent,
		tblStandAloneSig, tblModuleRef, tblTypeSpec, tblAssembly, tblAssemblyRef,
		tblFile, tblExportedType, tblManifestResource, tblGenericParam,
		tblGenericParamConstraint, tblMethodSpec,
	}},
}

// tableSchemas declares every table's columns so row sizes can be computed
// for any module, even for tables this reader never decodes.
var tableSchemas = map[int][]col{
	tblModule:                 {{colU16, 0}, {colString, 0}, {colGUID, 0}, {colGUID, 0}, {colGUID, 0}},
	tblTypeRef:                {{colCoded, cgResolutionScope}, {colString, 0}, {colString, 0}},
	tblTypeDef:                {{colU32, 0}, {colString, 0}, {colString, 0}, {colCoded, cgTypeDefOrRef}, {colIndex, tblField}, {colIndex, tblMethodDef}},
	tblFieldPtr:               {{colIndex, tblField}},
	tblField:                  {{colU16, 0}, {colString, 0}, {colBlob, 0}},
	tblMethodPtr:              {{colIndex, tblMethodDef}},
	tblMethodDef:              {{colU32, 0}, {colU16, 0}, {colU16, 0}, {colString, 0}, {colBlob, 0}, {colIndex, tblParam}},
	tblParamPtr:               {{colIndex, tblParam}},
	tblParam:                  {{colU16, 0}, {colU16, 0}, {colString, 0}},
	tblInterfaceImpl:          {{colIndex, tblTypeDef}, {colCoded, cgTypeDefOrRef}},
	tblMemberRef:              {{colCoded, cgMemberRefParent}, {colString, 0}, {colBlob, 0}},
	tblConstant:               {{colU16, 0}, {colCoded, cgHasConstant}, {colBlob, 0}},
	tblCustomAttribute:        {{colCoded, cgHasCustomAttribute}, {colCoded, cgCustomAttributeType}, {colBlob, 0}},
	tblFieldMarshal:           {{colCoded, cgHasFieldMarshal}, {colBlob, 0}},
	tblDeclSecurity:           {{colU16, 0}, {colCoded, cgHasDeclSecurity}, {colBlob, 0}},
	tblClassLayout:            {{colU16, 0}, {colU32, 0}, {colIndex, tblTypeDef}},
	tblFieldLayout:            {{colU32, 0}, {colIndex, tblField}},
	tblStandAloneSig:          {{colBlob, 0}},
	tblEventMap:               {{colIndex, tblTypeDef}, {colIndex, tblEvent}},
	tblEventPtr:               {{colIndex, tblEvent}},
	tblEvent:                  {{colU16, 0}, {colString, 0}, {colCoded, cgTypeDefOrRef}},
	tblPropertyMap:            {{colIndex, tblTypeDef}, {colIndex, tblProperty}},
	tblPropertyPtr:            {{colIndex, tblProperty}},
	tblProperty:               {{colU16, 0}, {colString, 0}, {colBlob, 0}},
	tblMethodSemantics:        {{colU16, 0}, {colIndex, tblMethodDef}, {colCoded, cgHasSemantics}},
	tblMethodImpl:             {{colIndex, tblTypeDef}, {colCoded, cgMethodDefOrRef}, {colCoded, cgMethodDefOrRef}},
	tblModuleRef:              {{colString, 0}},
	tblTypeSpec:               {{colBlob, 0}},
	tblImplMap:                {{colU16, 0}, {colCoded, cgMemberForwarded}, {colString, 0}, {colIndex, tblModuleRef}},
	tblFieldRVA:               {{colU32, 0}, {colIndex, tblField}},
	tblENCLog:                 {{colU32, 0}, {colU32, 0}},
	tblENCMap:                 {{colU32, 0}},
	tblAssembly:               {{colU32, 0}, {colU16, 0}, {colU16, 0}, {colU16, 0}, {colU16, 0}, {colU32, 0}, {colBlob, 0}, {colString, 0}, {colString, 0}},
	tblAssemblyProcessor:      {{colU32, 0}},
	tblAssemblyOS:             {{colU32, 0}, {colU32, 0}, {colU32, 0}},
	tblAssemblyRef:            {{colU16, 0}, {colU16, 0}, {colU16, 0}, {colU16, 0}, {colU32, 0}, {colBlob, 0}, {colString, 0}, {colString, 0}, {colBlob, 0}},
	tblAssemblyRefProcessor:   {{colU32, 0}, {colIndex, tblAssemblyRef}},
	tblAssemblyRefOS:          {{colU32, 0}, {colU32, 0}, {colU32, 0}, {colIndex, tblAssemblyRef}},
	tblFile:                   {{colU32, 0}, {colString, 0}, {colBlob, 0}},
	tblExportedType:           {{colU32, 0}, {colU32, 0}, {colString, 0}, {colString, 0}, {colCoded, cgImplementation}},
	tblManifestResource:       {{colU32, 0}, {colU32, 0}, {colString, 0}, {colCoded, cgImplementation}},
	tblNestedClass:            {{colIndex, tblTypeDef}, {colIndex, tblTypeDef}},
	tblGenericParam:           {{colU16, 0}, {colU16, 0}, {colCoded, cgTypeOrMethodDef}, {colString, 0}},
	tblMethodSpec:             {{colCoded, cgMethodDefOrRef}, {colBlob, 0}},
	tblGenericParamConstraint: {{colIndex, tblGenericParam}, {colCoded, cgTypeDefOrRef}},
}

// tables is a decoded #~ (or #-) stream plus the #Strings heap.
type tables struct {
	strings   []byte
	heapSizes byte
	rowCounts [numTables]uint32
	rowSizes  [numTables]int
	offsets   [numTables]int // byte offset of each table's rows
	rows      []byte
}

// metadataSignature marks the start of a CLI metadata root ("BSJB").
const metadataSignature = 0x424A5342

// parseMetadataRoot locates the tables stream and strings heap inside a raw
// metadata blob and decodes the table directory.
func parseMetadataRoot(meta []byte) (*tables, error) {
	r := &byteReader{data: meta}
	if r.u32() != metadataSignature {
		return nil, errors.New(errors.ErrCodePartialMetadata, "bad metadata signature")
	}
	r.skip(4) // major, minor
	r.skip(4) // reserved
	versionLen := int(r.u32())
	r.skip(versionLen) // version string, already 4-byte padded
	r.skip(2)          // flags
	streamCount := int(r.u16())
	if r.err != nil {
		return nil, errors.New(errors.ErrCodePartialMetadata, "truncated metadata root")
	}

	var tableStream, stringHeap []byte
	for i := 0; i < streamCount; i++ {
		offset := int(r.u32())
		size := int(r.u32())
		name := r.paddedName()
		if r.err != nil {
			return nil, errors.New(errors.ErrCodePartialMetadata, "truncated stream headers")
		}
		if offset < 0 || size < 0 || offset+size > len(meta) {
			return nil, errors.New(errors.ErrCodePartialMetadata, "stream %q outside metadata", name)
		}
		switch name {
		case "#~", "#-":
			tableStream = meta[offset : offset+size]
		case "#Strings":
			stringHeap = meta[offset : offset+size]
		}
	}
	if tableStream == nil {
		return nil, errors.New(errors.ErrCodePartialMetadata, "no metadata tables stream")
	}
	if stringHeap == nil {
		return nil, errors.New(errors.ErrCodePartialMetadata, "no strings heap")
	}
	return parseTables(tableStream, stringHeap)
}

// parseTables decodes the tables stream header: heap size flags, the
// presence bitmask, per-table row counts, and from those the byte layout of
// every table's rows.
func parseTables(stream, stringHeap []byte) (*tables, error) {
	r := &byteReader{data: stream}
	r.skip(4) // reserved
	r.skip(2) // major, minor version
	heapSizes := r.u8()
	r.skip(1) // reserved
	valid := r.u64()
	r.skip(8) // sorted

	t := &tables{strings: stringHeap, heapSizes: heapSizes}
	for i := 0; i < 64; i++ {
		if valid&(1<<uint(i)) == 0 {
			continue
		}
		count := r.u32()
		if i >= numTables {
			if count > 0 {
				return nil, errors.New(errors.ErrCodePartialMetadata, "unknown metadata table 0x%02X", i)
			}
			continue
		}
		t.rowCounts[i] = count
	}
	if r.err != nil {
		return nil, errors.New(errors.ErrCodePartialMetadata, "truncated tables header")
	}

	offset := 0
	for i := 0; i < numTables; i++ {
		if t.rowCounts[i] == 0 {
			continue
		}
		size, err := t.rowSize(i)
		if err != nil {
			return nil, err
		}
		t.rowSizes[i] = size
		t.offsets[i] = offset
		offset += size * int(t.rowCounts[i])
	}

	t.rows = stream[r.off:]
	if offset > len(t.rows) {
		return nil, errors.New(errors.ErrCodePartialMetadata, "table rows extend past stream end")
	}
	return t, nil
}

func (t *tables) rowSize(table int) (int, error) {
	schema, ok := tableSchemas[table]
	if !ok {
		return 0, errors.New(errors.ErrCodePartialMetadata, "no schema for table 0x%02X", table)
	}
	size := 0
	for _, c := range schema {
		size += t.colSize(c)
	}
	return size, nil
}

func (t *tables) colSize(c col) int {
	switch c.kind {
	case colU16:
		return 2
	case colU32:
		return 4
	case colString:
		return heapIndexSize(t.heapSizes&0x1 != 0)
	case colGUID:
		return heapIndexSize(t.heapSizes&0x2 != 0)
	case colBlob:
		return heapIndexSize(t.heapSizes&0x4 != 0)
	case colIndex:
		if t.rowCounts[c.arg] > 0xFFFF {
			return 4
		}
		return 2
	case colCoded:
		g := codedGroups[c.arg]
		var maxRows uint32
		for _, tbl := range g.tables {
			if tbl >= 0 && t.rowCounts[tbl] > maxRows {
				maxRows = t.rowCounts[tbl]
			}
		}
		if maxRows >= 1<<(16-uint(g.tagBits)) {
			return 4
		}
		return 2
	}
	return 0
}

func heapIndexSize(wide bool) int {
	if wide {
		return 4
	}
	return 2
}

// readRow decodes row i (0-based) of a table into raw column values.
func (t *tables) readRow(table int, i uint32) ([]uint64, error) {
	if i >= t.rowCounts[table] {
		return nil, errors.New(errors.ErrCodePartialMetadata, "row %d out of range for table 0x%02X", i, table)
	}
	off := t.offsets[table] + int(i)*t.rowSizes[table]
	r := &byteReader{data: t.rows, off: off}

	schema := tableSchemas[table]
	values := make([]uint64, len(schema))
	for j, c := range schema {
		switch t.colSize(c) {
		case 2:
			values[j] = uint64(r.u16())
		case 4:
			values[j] = uint64(r.u32())
		}
	}
	if r.err != nil {
		return nil, errors.New(errors.ErrCodePartialMetadata, "truncated row in table 0x%02X", table)
	}
	return values, nil
}

// string resolves a #Strings heap index to its null-terminated value.
func (t *tables) string(idx uint64) (string, error) {
	if idx >= uint64(len(t.strings)) {
		return "", errors.New(errors.ErrCodePartialMetadata, "string index %d outside heap", idx)
	}
	rest := t.strings[idx:]
	end := bytes.IndexByte(rest, 0)
	if end < 0 {
		return "", errors.New(errors.ErrCodePartialMetadata, "unterminated string at %d", idx)
	}
	return string(rest[:end]), nil
}

// decodeCoded splits a coded index into its target table and 1-based row.
func decodeCoded(group int, v uint64) (table int, row uint32) {
	g := codedGroups[group]
	tag := int(v & ((1 << uint(g.tagBits)) - 1))
	if tag >= len(g.tables) {
		return -1, 0
	}
	return g.tables[tag], uint32(v >> uint(g.tagBits))
}

// typeDef is one decoded TypeDef row.
type typeDef struct {
	flags     uint32
	name      string
	namespace string
	// extends is a TypeDefOrRef coded index; extendsRow is 1-based, 0 when null.
	extendsTable int
	extendsRow   uint32
}

func (t *tables) numRows(table int) uint32 { return t.rowCounts[table] }

func (t *tables) typeDef(i uint32) (typeDef, error) {
	v, err := t.readRow(tblTypeDef, i)
	if err != nil {
		return typeDef{}, err
	}
	name, err := t.string(v[1])
	if err != nil {
		return typeDef{}, err
	}
	namespace, err := t.string(v[2])
	if err != nil {
		return typeDef{}, err
	}
	extTable, extRow := decodeCoded(cgTypeDefOrRef, v[3])
	return typeDef{
		flags:        uint32(v[0]),
		name:         name,
		namespace:    namespace,
		extendsTable: extTable,
		extendsRow:   extRow,
	}, nil
}

// typeRef is one decoded TypeRef row.
type typeRef struct {
	scopeTable int
	scopeRow   uint32 // 1-based
	name       string
	namespace  string
}

func (t *tables) typeRef(i uint32) (typeRef, error) {
	v, err := t.readRow(tblTypeRef, i)
	if err != nil {
		return typeRef{}, err
	}
	name, err := t.string(v[1])
	if err != nil {
		return typeRef{}, err
	}
	namespace, err := t.string(v[2])
	if err != nil {
		return typeRef{}, err
	}
	scopeTable, scopeRow := decodeCoded(cgResolutionScope, v[0])
	return typeRef{scopeTable: scopeTable, scopeRow: scopeRow, name: name, namespace: namespace}, nil
}

// assemblyRefName returns the simple name of an AssemblyRef row.
func (t *tables) assemblyRefName(i uint32) (string, error) {
	v, err := t.readRow(tblAssemblyRef, i)
	if err != nil {
		return "", err
	}
	return t.string(v[6])
}

// byteReader is a bounds-checked little-endian cursor. After any read past
// the end, err is set and subsequent reads return zero.
type byteReader struct {
	data []byte
	off  int
	err  error
}

func (r *byteReader) u8() byte {
	if r.err != nil || r.off+1 > len(r.data) {
		r.fail()
		return 0
	}
	v := r.data[r.off]
	r.off++
	return v
}

func (r *byteReader) u16() uint16 {
	if r.err != nil || r.off+2 > len(r.data) {
		r.fail()
		return 0
	}
	v := binary.LittleEndian.Uint16(r.data[r.off:])
	r.off += 2
	return v
}

func (r *byteReader) u32() uint32 {
	if r.err != nil || r.off+4 > len(r.data) {
		r.fail()
		return 0
	}
	v := binary.LittleEndian.Uint32(r.data[r.off:])
	r.off += 4
	return v
}

func (r *byteReader) u64() uint64 {
	if r.err != nil || r.off+8 > len(r.data) {
		r.fail()
		return 0
	}
	v := binary.LittleEndian.Uint64(r.data[r.off:])
	r.off += 8
	return v
}

func (r *byteReader) skip(n int) {
	if r.err != nil || n < 0 || r.off+n > len(r.data) {
		r.fail()
		return
	}
	r.off += n
}

// paddedName reads a null-terminated stream name padded to a 4-byte boundary.
func (r *byteReader) paddedName() string {
	if r.err != nil {
		return ""
	}
	rest := r.data[r.off:]
	end := bytes.IndexByte(rest, 0)
	if end < 0 {
		r.fail()
		return ""
	}
	name := string(rest[:end])
	r.skip((end + 1 + 3) &^ 3)
	return name
}

func (r *byteReader) fail() {
	if r.err == nil {
		r.err = errors.New(errors.ErrCodePartialMetadata, "unexpected end of data")
	}
}
