package stamp

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"

	"github.com/ledongthuc/pdf"
)

// resourceNames are the page resource keys the stamp draws with.
type resourceNames struct {
	image, regular, bold string
}

// source is the parsed state of the document needed to append one update.
type source struct {
	data       []byte
	pageRef    pdfRef
	page       pdfDict
	resources  pdfDict
	contents   []object
	box        [4]float64
	names      resourceNames
	size       int
	prev       int64
	xrefStream bool
	root       object
	info       object
	id         pdfArray
}

var refPattern = regexp.MustCompile(`(\d+) (\d+) R`)

// openSource parses data far enough to rewrite its last page. The pdf reader
// panics on some malformed input; those panics become ErrInvalidPDF.
func openSource(data []byte) (src *source, err error) {
	defer func() {
		if r := recover(); r != nil {
			src, err = nil, fmt.Errorf("%w: %v", ErrInvalidPDF, r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		if errors.Is(err, pdf.ErrInvalidPassword) || bytes.Contains(data, []byte("/Encrypt")) {
			return nil, ErrEncryptedPDF
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidPDF, err)
	}
	trailer := r.Trailer()
	if !trailer.Key("Encrypt").IsNull() {
		return nil, ErrEncryptedPDF
	}
	n := r.NumPage()
	if n < 1 {
		return nil, fmt.Errorf("%w: document has no pages", ErrInvalidPDF)
	}
	page := r.Page(n)
	if page.V.Kind() != pdf.Dict {
		return nil, fmt.Errorf("%w: page %d not found", ErrInvalidPDF, n)
	}

	src = &source{data: data, xrefStream: trailer.Key("Type").Name() == "XRef"}
	if src.pageRef, err = lastPageRef(trailer.Key("Root").Key("Pages")); err != nil {
		return nil, err
	}
	if src.page, err = parseDict(page.V); err != nil {
		return nil, err
	}
	if err := src.loadResources(page); err != nil {
		return nil, err
	}
	if err := src.loadContents(page.V); err != nil {
		return nil, err
	}
	src.box = pageBox(page.V)

	td, err := parseDict(trailer)
	if err != nil {
		return nil, err
	}
	var ok bool
	if src.root, ok = td.get("Root"); !ok {
		return nil, fmt.Errorf("%w: trailer has no Root", ErrInvalidPDF)
	}
	src.info, _ = td.get("Info")
	if ids := trailer.Key("ID"); ids.Len() == 2 {
		src.id = pdfArray{pdfString(ids.Index(0).RawString()), pdfString(ids.Index(1).RawString())}
	}
	if src.size = int(trailer.Key("Size").Int64()); src.size <= src.pageRef.ID {
		return nil, fmt.Errorf("%w: bad trailer Size %d", ErrInvalidPDF, src.size)
	}
	if src.prev, err = lastStartXref(data); err != nil {
		return nil, err
	}
	return src, nil
}

// lastPageRef walks the page tree from the end to find the last leaf's reference.
func lastPageRef(node pdf.Value) (pdfRef, error) {
Walk:
	for depth := 0; depth < 32; depth++ {
		kids := node.Key("Kids")
		refs := refPattern.FindAllStringSubmatch(kids.String(), -1)
		if kids.Len() == 0 || len(refs) != kids.Len() {
			break
		}
		for i := kids.Len() - 1; i >= 0; i-- {
			kid := kids.Index(i)
			switch kid.Key("Type").Name() {
			case "Page":
				id, _ := strconv.Atoi(refs[i][1])
				gen, _ := strconv.Atoi(refs[i][2])
				return pdfRef{ID: id, Gen: gen}, nil
			case "Pages":
				if kid.Key("Count").Int64() > 0 {
					node = kid
					continue Walk
				}
			}
		}
		break
	}
	return pdfRef{}, fmt.Errorf("%w: cannot locate last page object", ErrInvalidPDF)
}

func parseDict(v pdf.Value) (pdfDict, error) {
	o, err := parseValue(v.String())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPDF, err)
	}
	d, ok := o.(pdfDict)
	if !ok {
		return nil, fmt.Errorf("%w: expected dictionary", ErrInvalidPDF)
	}
	return d, nil
}

// loadResources copies the effective (possibly inherited) resources inline and
// picks names that do not collide with existing fonts or XObjects.
func (s *source) loadResources(page pdf.Page) error {
	res := page.Resources()
	s.resources = pdfDict{}
	if !res.IsNull() {
		d, err := parseDict(res)
		if err != nil {
			return err
		}
		s.resources = d
	}
	taken := map[string]bool{}
	for _, key := range []string{"Font", "XObject"} {
		sub := pdfDict{}
		if v, ok := s.resources.get(key); ok {
			if d, ok := v.(pdfDict); ok {
				sub = d
			} else {
				d, err := parseDict(res.Key(key))
				if err != nil {
					return err
				}
				sub = d
			}
		}
		for _, e := range sub {
			taken[e.key] = true
		}
		s.resources.set(key, sub)
	}
	unique := func(base string) string {
		name := base
		for i := 1; taken[name]; i++ {
			name = base + strconv.Itoa(i)
		}
		taken[name] = true
		return name
	}
	s.names = resourceNames{image: unique("SigImg"), regular: unique("SigHelv"), bold: unique("SigHelvB")}
	return nil
}

func (s *source) loadContents(page pdf.Value) error {
	v, ok := s.page.get("Contents")
	if !ok {
		return nil
	}
	switch c := v.(type) {
	case pdfArray:
		s.contents = c
	case pdfRef:
		if page.Key("Contents").Kind() == pdf.Array {
			o, err := parseValue(page.Key("Contents").String())
			if err != nil {
				return fmt.Errorf("%w: %v", ErrInvalidPDF, err)
			}
			arr, _ := o.(pdfArray)
			s.contents = arr
			return nil
		}
		s.contents = []object{c}
	default:
		return fmt.Errorf("%w: unexpected page Contents", ErrInvalidPDF)
	}
	return nil
}

// pageBox returns the visible page rectangle, CropBox first, then MediaBox,
// following inheritance through the page tree.
func pageBox(page pdf.Value) [4]float64 {
	for _, key := range []string{"CropBox", "MediaBox"} {
		for v := page; !v.IsNull(); v = v.Key("Parent") {
			b := v.Key(key)
			if b.Kind() != pdf.Array || b.Len() != 4 {
				continue
			}
			x1, y1, x2, y2 := b.Index(0).Float64(), b.Index(1).Float64(), b.Index(2).Float64(), b.Index(3).Float64()
			return [4]float64{min(x1, x2), min(y1, y2), max(x1, x2), max(y1, y2)}
		}
	}
	return [4]float64{0, 0, 612, 792}
}

func lastStartXref(data []byte) (int64, error) {
	i := bytes.LastIndex(data, []byte("startxref"))
	if i < 0 {
		return 0, fmt.Errorf("%w: missing startxref", ErrInvalidPDF)
	}
	rest := bytes.TrimLeft(data[i+len("startxref"):], " \r\n\t")
	end := 0
	for end < len(rest) && rest[end] >= '0' && rest[end] <= '9' {
		end++
	}
	off, err := strconv.ParseInt(string(rest[:end]), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: bad startxref", ErrInvalidPDF)
	}
	return off, nil
}

// appendStamp writes the update: the image (and soft mask), two fonts, two
// content streams wrapping the original content and the rewritten page.
func (s *source) appendStamp(img *signatureImage, content []byte) ([]byte, error) {
	var out bytes.Buffer
	out.Grow(len(s.data) + len(img.data) + len(img.alpha) + 4096)
	out.Write(s.data)
	if !bytes.HasSuffix(s.data, []byte("\n")) {
		out.WriteByte('\n')
	}

	offsets := map[int]int64{}
	gens := map[int]int{}
	next := s.size
	alloc := func() pdfRef {
		r := pdfRef{ID: next}
		next++
		return r
	}
	writeObj := func(ref pdfRef, body []byte) {
		offsets[ref.ID] = int64(out.Len())
		gens[ref.ID] = ref.Gen
		fmt.Fprintf(&out, "%d %d obj\n", ref.ID, ref.Gen)
		out.Write(body)
		out.WriteString("\nendobj\n")
	}
	stream := func(d pdfDict, data []byte) []byte {
		d.set("Length", pdfNumber(strconv.Itoa(len(data))))
		var b bytes.Buffer
		d.writeTo(&b)
		b.WriteString("\nstream\n")
		b.Write(data)
		b.WriteString("\nendstream")
		return b.Bytes()
	}

	imgDict := pdfDict{
		{"Type", pdfName("XObject")},
		{"Subtype", pdfName("Image")},
		{"Width", pdfNumber(strconv.Itoa(img.pixW))},
		{"Height", pdfNumber(strconv.Itoa(img.pixH))},
		{"ColorSpace", pdfName(img.colorSpace)},
		{"BitsPerComponent", pdfNumber("8")},
		{"Filter", pdfName(img.filter)},
	}
	imgRef := alloc()
	if img.alpha != nil {
		maskRef := alloc()
		imgDict.set("SMask", maskRef)
		writeObj(maskRef, stream(pdfDict{
			{"Type", pdfName("XObject")},
			{"Subtype", pdfName("Image")},
			{"Width", pdfNumber(strconv.Itoa(img.pixW))},
			{"Height", pdfNumber(strconv.Itoa(img.pixH))},
			{"ColorSpace", pdfName("DeviceGray")},
			{"BitsPerComponent", pdfNumber("8")},
			{"Filter", pdfName("FlateDecode")},
		}, img.alpha))
	}
	writeObj(imgRef, stream(imgDict, img.data))

	regularRef, boldRef := alloc(), alloc()
	writeObj(regularRef, serialize(standardFont("Helvetica")))
	writeObj(boldRef, serialize(standardFont("Helvetica-Bold")))

	preRef, postRef := alloc(), alloc()
	writeObj(preRef, stream(pdfDict{}, []byte("q\n")))
	packed, err := deflate(content)
	if err != nil {
		return nil, err
	}
	writeObj(postRef, stream(pdfDict{{"Filter", pdfName("FlateDecode")}}, packed))

	fonts, _ := s.resources.get("Font")
	fontDict := fonts.(pdfDict)
	fontDict.set(s.names.regular, regularRef)
	fontDict.set(s.names.bold, boldRef)
	s.resources.set("Font", fontDict)
	xobjs, _ := s.resources.get("XObject")
	xobjDict := xobjs.(pdfDict)
	xobjDict.set(s.names.image, imgRef)
	s.resources.set("XObject", xobjDict)
	if _, ok := s.resources.get("ProcSet"); !ok {
		s.resources.set("ProcSet", pdfArray{pdfName("PDF"), pdfName("Text"), pdfName("ImageB"), pdfName("ImageC")})
	}

	contents := pdfArray{preRef}
	contents = append(contents, s.contents...)
	contents = append(contents, postRef)
	s.page.set("Contents", contents)
	s.page.set("Resources", s.resources)
	writeObj(s.pageRef, serialize(s.page))

	if s.xrefStream {
		s.writeXrefStream(&out, offsets, gens, alloc())
	} else {
		s.writeXrefTable(&out, offsets, gens, next)
	}
	return out.Bytes(), nil
}

func standardFont(base string) pdfDict {
	return pdfDict{
		{"Type", pdfName("Font")},
		{"Subtype", pdfName("Type1")},
		{"BaseFont", pdfName(base)},
		{"Encoding", pdfName("WinAnsiEncoding")},
	}
}

// sections groups object ids into consecutive runs for the xref index.
func sections(offsets map[int]int64) [][2]int {
	ids := make([]int, 0, len(offsets))
	for id := range offsets {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	var out [][2]int
	for _, id := range ids {
		if n := len(out); n > 0 && out[n-1][0]+out[n-1][1] == id {
			out[n-1][1]++
			continue
		}
		out = append(out, [2]int{id, 1})
	}
	return out
}

func (s *source) trailerDict(size int) pdfDict {
	d := pdfDict{
		{"Size", pdfNumber(strconv.Itoa(size))},
		{"Root", s.root},
	}
	if s.info != nil {
		d.set("Info", s.info)
	}
	if s.id != nil {
		d.set("ID", s.id)
	}
	d.set("Prev", pdfNumber(strconv.FormatInt(s.prev, 10)))
	return d
}

func (s *source) writeXrefTable(out *bytes.Buffer, offsets map[int]int64, gens map[int]int, size int) {
	start := out.Len()
	out.WriteString("xref\n0 1\n0000000000 65535 f \n")
	for _, sec := range sections(offsets) {
		fmt.Fprintf(out, "%d %d\n", sec[0], sec[1])
		for id := sec[0]; id < sec[0]+sec[1]; id++ {
			fmt.Fprintf(out, "%010d %05d n \n", offsets[id], gens[id])
		}
	}
	out.WriteString("trailer\n")
	s.trailerDict(size).writeTo(out)
	fmt.Fprintf(out, "\nstartxref\n%d\n%%%%EOF\n", start)
}

func (s *source) writeXrefStream(out *bytes.Buffer, offsets map[int]int64, gens map[int]int, self pdfRef) {
	start := int64(out.Len())
	offsets[self.ID] = start
	gens[self.ID] = 0

	var index pdfArray
	var rows bytes.Buffer
	for _, sec := range sections(offsets) {
		index = append(index, pdfNumber(strconv.Itoa(sec[0])), pdfNumber(strconv.Itoa(sec[1])))
		for id := sec[0]; id < sec[0]+sec[1]; id++ {
			var row [7]byte
			row[0] = 1
			binary.BigEndian.PutUint32(row[1:5], uint32(offsets[id]))
			binary.BigEndian.PutUint16(row[5:7], uint16(gens[id]))
			rows.Write(row[:])
		}
	}

	d := s.trailerDict(self.ID + 1)
	d = append(pdfDict{{"Type", pdfName("XRef")}}, d...)
	d.set("W", pdfArray{pdfNumber("1"), pdfNumber("4"), pdfNumber("2")})
	d.set("Index", index)
	d.set("Length", pdfNumber(strconv.Itoa(rows.Len())))

	fmt.Fprintf(out, "%d 0 obj\n", self.ID)
	d.writeTo(out)
	out.WriteString("\nstream\n")
	out.Write(rows.Bytes())
	out.WriteString("\nendstream\nendobj\n")
	fmt.Fprintf(out, "startxref\n%d\n%%%%EOF\n", start)
}
