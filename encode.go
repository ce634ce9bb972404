package nest

import (
	"cmp"
	"encoding/xml"
	"errors"
	"io"
	"mime"
	"net/url"
	"slices"
	"strconv"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

// jsonAPI decodes numbers as json.Number so integer parameters keep their
// precision until validation coerces them.
var jsonAPI = jsoniter.Config{
	EscapeHTML:             true,
	SortMapKeys:            true,
	ValidateJsonRawMessage: true,
	UseNumber:              true,
}.Froze()

// Encoder writes handler results in one media type.
type Encoder interface {
	ContentType() string
	Encode(w io.Writer, v any) error
}

// Decoder reads a request body of one media type into raw parameters. v is
// always a *any; a decoder that produces anything other than a
// map[string]any makes the request fail validation.
type Decoder interface {
	ContentType() string
	Decode(r io.Reader, v any) error
}

type jsonCodec struct{}

func (jsonCodec) ContentType() string { return "application/json" }

func (jsonCodec) Encode(w io.Writer, v any) error {
	return jsonAPI.NewEncoder(w).Encode(v)
}

func (jsonCodec) Decode(r io.Reader, v any) error {
	err := jsonAPI.NewDecoder(r).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// xmlCodec only encodes. Parameters are untyped until validation, and XML
// has no schema-free mapping onto them.
type xmlCodec struct{}

func (xmlCodec) ContentType() string { return "application/xml" }

func (xmlCodec) Encode(w io.Writer, v any) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	return xml.NewEncoder(w).Encode(v)
}

// formCodec decodes application/x-www-form-urlencoded bodies. Repeated keys
// become string lists, as they do in the query string.
type formCodec struct{}

func (formCodec) ContentType() string { return "application/x-www-form-urlencoded" }

func (formCodec) Decode(r io.Reader, v any) error {
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	values, err := url.ParseQuery(string(b))
	if err != nil {
		return err
	}
	raw := make(map[string]any, len(values))
	mergeValues(raw, values)

	out, ok := v.(*any)
	if !ok {
		return errors.New("form decoder needs a *any")
	}
	*out = raw
	return nil
}

// codecRegistry holds the registered encoders and decoders. JSON is first
// in both lists and is the default.
type codecRegistry struct {
	encoders []Encoder
	decoders []Decoder
}

func newCodecRegistry(userEncoders []Encoder, userDecoders []Decoder) *codecRegistry {
	cr := &codecRegistry{
		encoders: []Encoder{jsonCodec{}, xmlCodec{}},
		decoders: []Decoder{jsonCodec{}, formCodec{}},
	}
	cr.encoders = append(cr.encoders, userEncoders...)
	cr.decoders = append(cr.decoders, userDecoders...)
	return cr
}

// mediaRange is one entry of an Accept header.
type mediaRange struct {
	typ     string
	quality float64
}

// parseAccept returns the acceptable media ranges, highest quality first.
// Ranges with q=0 are dropped; equal qualities keep header order.
func parseAccept(accept string) []mediaRange {
	var ranges []mediaRange
	for part := range strings.SplitSeq(accept, ",") {
		typ, params, err := mime.ParseMediaType(strings.TrimSpace(part))
		if err != nil {
			continue
		}
		q := 1.0
		if qs, ok := params["q"]; ok {
			if parsed, err := strconv.ParseFloat(qs, 64); err == nil {
				q = parsed
			}
		}
		if q <= 0 {
			continue
		}
		ranges = append(ranges, mediaRange{typ: typ, quality: q})
	}
	slices.SortStableFunc(ranges, func(a, b mediaRange) int {
		return cmp.Compare(b.quality, a.quality)
	})
	return ranges
}

// negotiate picks an encoder for the Accept header. Empty, */* and
// application/* select JSON; an explicit Accept with no match returns false.
func (cr *codecRegistry) negotiate(accept string) (Encoder, bool) {
	if accept == "" {
		return cr.encoders[0], true
	}
	for _, mr := range parseAccept(accept) {
		if mr.typ == "*/*" || mr.typ == "application/*" {
			return cr.encoders[0], true
		}
		for _, enc := range cr.encoders {
			if enc.ContentType() == mr.typ {
				return enc, true
			}
		}
	}
	return nil, false
}

// decoderFor returns the decoder for contentType. An empty content type
// selects JSON.
func (cr *codecRegistry) decoderFor(contentType string) (Decoder, bool) {
	if contentType == "" {
		return cr.decoders[0], true
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return nil, false
	}
	i := slices.IndexFunc(cr.decoders, func(d Decoder) bool { return d.ContentType() == mediaType })
	if i < 0 {
		return nil, false
	}
	return cr.decoders[i], true
}

// ContentTypes returns the media types responses can be encoded as.
func (a *App) ContentTypes() []string {
	cts := make([]string, len(a.codecs.encoders))
	for i, enc := range a.codecs.encoders {
		cts[i] = enc.ContentType()
	}
	return cts
}

// RequestContentTypes returns the media types request bodies can be
// decoded from.
func (a *App) RequestContentTypes() []string {
	cts := make([]string, len(a.codecs.decoders))
	for i, dec := range a.codecs.decoders {
		cts[i] = dec.ContentType()
	}
	return cts
}
