/*
Copyright 2018 The pdfcpu Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package convert

import (
	"sort"
	"strconv"
	"strings"

	"github.com/hhrutter/pdfcolor/pkg/model"
	"github.com/hhrutter/pdfcolor/pkg/types"
	"github.com/pkg/errors"
	"golang.org/x/text/encoding/charmap"
)

// tokenKind classifies one content-stream token, per spec.md §3's
// "Content-Stream Operation" / "Color-Space State".
type tokenKind int

const (
	tokNumber tokenKind = iota
	tokName
	tokString
	tokOperator
	tokArrayOpen
	tokArrayClose
	tokDictOpen
	tokDictClose
	tokOpaque // inline image (BI..EI) or a PostScript calculator block
)

// csToken is one scanned token with its byte span in the source stream.
type csToken struct {
	kind       tokenKind
	start, end int
	text       string // decoded text for tokNumber/tokName/tokOperator
}

func isWhitespace(b byte) bool {
	switch b {
	case 0x00, 0x09, 0x0A, 0x0C, 0x0D, 0x20:
		return true
	}
	return false
}

func isDelimiter(b byte) bool {
	switch b {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

// tokenizeContentStream scans data byte by byte into csTokens (no regex),
// per spec.md §4.8's tokenizer requirement. Strings, dict markers, and
// inline images are recognized only well enough to not be mistaken for
// operators; their interiors are opaque to color conversion.
func tokenizeContentStream(data []byte) []csToken {
	var toks []csToken
	n := len(data)
	i := 0

	for i < n {
		c := data[i]

		switch {
		case isWhitespace(c):
			i++

		case c == '%':
			j := i
			for j < n && data[j] != '\n' && data[j] != '\r' {
				j++
			}
			i = j

		case c == '(':
			start := i
			depth := 0
			j := i
			for j < n {
				switch data[j] {
				case '\\':
					j += 2
					continue
				case '(':
					depth++
				case ')':
					depth--
					if depth == 0 {
						j++
						goto doneString
					}
				}
				j++
			}
		doneString:
			if j > n {
				j = n
			}
			toks = append(toks, csToken{kind: tokString, start: start, end: j})
			i = j

		case c == '<' && i+1 < n && data[i+1] == '<':
			toks = append(toks, csToken{kind: tokDictOpen, start: i, end: i + 2})
			i += 2

		case c == '<':
			start := i
			j := i + 1
			for j < n && data[j] != '>' {
				j++
			}
			if j < n {
				j++
			}
			toks = append(toks, csToken{kind: tokString, start: start, end: j})
			i = j

		case c == '>' && i+1 < n && data[i+1] == '>':
			toks = append(toks, csToken{kind: tokDictClose, start: i, end: i + 2})
			i += 2

		case c == '[':
			toks = append(toks, csToken{kind: tokArrayOpen, start: i, end: i + 1})
			i++

		case c == ']':
			toks = append(toks, csToken{kind: tokArrayClose, start: i, end: i + 1})
			i++

		case c == '{' || c == '}':
			i++

		case c == '/':
			start := i
			j := i + 1
			for j < n && !isWhitespace(data[j]) && !isDelimiter(data[j]) {
				j++
			}
			toks = append(toks, csToken{kind: tokName, start: start, end: j, text: decodeName(data[start+1 : j])})
			i = j

		default:
			start := i
			j := i
			for j < n && !isWhitespace(data[j]) && !isDelimiter(data[j]) {
				j++
			}
			text := string(data[start:j])
			switch {
			case text == "BI":
				end := findInlineImageEnd(data, j)
				toks = append(toks, csToken{kind: tokOpaque, start: start, end: end})
				j = end
			case isNumericToken(text):
				toks = append(toks, csToken{kind: tokNumber, start: start, end: j, text: text})
			default:
				toks = append(toks, csToken{kind: tokOperator, start: start, end: j, text: text})
			}
			i = j
		}
	}

	return toks
}

// decodeName unescapes a PDF name's #xx hex escapes and decodes the
// remaining bytes as Latin-1, the fallback encoding real-world producers
// use for color-space and colorant names outside ASCII.
func decodeName(raw []byte) string {
	out := make([]byte, 0, len(raw))
	for i := 0; i < len(raw); i++ {
		if raw[i] == '#' && i+2 < len(raw) {
			if v, err := strconv.ParseUint(string(raw[i+1:i+3]), 16, 8); err == nil {
				out = append(out, byte(v))
				i += 2
				continue
			}
		}
		out = append(out, raw[i])
	}
	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(out)
	if err != nil {
		return string(out)
	}
	return string(decoded)
}

func isNumericToken(s string) bool {
	if s == "" {
		return false
	}
	i := 0
	if s[0] == '+' || s[0] == '-' {
		i++
	}
	sawDigit := false
	for ; i < len(s); i++ {
		switch {
		case s[i] >= '0' && s[i] <= '9':
			sawDigit = true
		case s[i] == '.':
		default:
			return false
		}
	}
	return sawDigit
}

func findInlineImageEnd(data []byte, from int) int {
	n := len(data)
	for i := from; i < n-1; i++ {
		if data[i] == 'E' && data[i+1] == 'I' && (i == 0 || isWhitespace(data[i-1])) && (i+2 >= n || isWhitespace(data[i+2])) {
			return i + 2
		}
	}
	return n
}

// formatNumber renders v per spec.md §4.8: six decimals, trailing zeros
// (and a trailing decimal point) stripped, magnitudes under 1e-4 collapsed
// to exactly "0".
func formatNumber(v float64) string {
	if v < 0.0001 && v > -0.0001 {
		return "0"
	}
	s := strconv.FormatFloat(v, 'f', 6, 64)
	s = strings.TrimRight(s, "0")
	s = strings.TrimSuffix(s, ".")
	if s == "" || s == "-" {
		return "0"
	}
	return s
}

// colorOp is one recorded color-setting operation found during the scan
// pass, pending batch conversion.
type colorOp struct {
	opStart, opEnd     int // byte span to replace: first value token's start .. operator token's end
	operator           string
	stroking           bool
	space              *resolvedColorSpace
	spaceKey           string
	values             []float64
	preserveOperator   bool // true for SC/sc/SCN/scn: keep the operator name, only rewrite operands
}

// csState tracks the current fill/stroke color space while scanning,
// per spec.md §3's "Color-Space State".
type csState struct {
	fill   *resolvedColorSpace
	stroke *resolvedColorSpace
}

func deviceRCS(name string) *resolvedColorSpace { return &resolvedColorSpace{name: name} }

// ConvertContentStream rewrites every color-setting operator in content so
// its operands are expressed in conf's destination color space, per
// spec.md §4.8 (Content-Stream Converter, C8). csResources is the page's
// Resources/ColorSpace dict, used to resolve named spaces set via CS/cs.
// labResourceName is the page-local name the Page Coordinator registered
// for the shared normalized Lab color space (§4.9 step 3); when the
// destination is Lab and labResourceName is non-empty, every rewritten
// operator is prefixed with a `/<labResourceName> CS`/`cs` selection so the
// named Lab space is re-selected regardless of what space was active
// before. Callers converting a stream in isolation (no page context) pass
// "", leaving the pre-existing CS/cs state alone.
func (c *Converter) ConvertContentStream(conf model.ColorConfig, ctx *model.Context, csResources types.Dict, content []byte, labResourceName string) ([]byte, error) {
	if !conf.ConvertContentStreams {
		return content, nil
	}

	toks := tokenizeContentStream(content)
	state := &csState{fill: deviceRCS("DeviceGray"), stroke: deviceRCS("DeviceGray")}

	var ops []colorOp
	spaceByKey := map[string]*resolvedColorSpace{}

	var numBuf []csToken

	for idx := 0; idx < len(toks); idx++ {
		tok := toks[idx]

		switch tok.kind {
		case tokNumber:
			numBuf = append(numBuf, tok)
			continue
		case tokName:
			// retained only to satisfy CS/cs/SCN's operand lookahead below
		case tokOperator:
			op, err := buildColorOp(ctx, csResources, state, toks, idx, numBuf, spaceByKey)
			if err != nil {
				return nil, errors.Wrap(ErrParseWarning, err.Error())
			}
			if op != nil {
				ops = append(ops, *op)
			}
			numBuf = nil
			continue
		default:
		}
		numBuf = nil
	}

	if len(ops) == 0 {
		return content, nil
	}

	fingerprint := configFingerprint(conf)
	for _, op := range ops {
		c.colors.RegisterColor(fingerprint, op.spaceKey, op.values)
	}

	for spaceKey, entries := range c.colors.Pending(fingerprint) {
		rcs := spaceByKey[spaceKey]
		if rcs == nil {
			continue
		}
		channels := channelsFor(rcs)
		if channels == 0 {
			continue
		}

		input := make([]float64, 0, len(entries)*channels)
		for _, e := range entries {
			input = append(input, e.Values...)
		}

		res, err := c.ConvertColorsBuffer(conf, BufferRequest{
			SourceColorSpace: rcs.name,
			SourceProfile:    rcs.profile,
			Input:            input,
			PixelCount:       len(entries),
			SourceChannels:   channels,
		})
		if err != nil {
			return nil, err
		}

		for i, e := range entries {
			converted := res.Output[i*res.OutputChannels : (i+1)*res.OutputChannels]
			out := make([]float64, len(converted))
			copy(out, converted)
			c.colors.StoreColor(fingerprint, spaceKey, e.Values, out)
		}
	}
	c.colors.ClearPending(fingerprint)

	return applyContentStreamRewrites(conf, content, ops, fingerprint, c, labResourceName)
}

// buildColorOp inspects the operator at toks[idx], classifies it, and
// (for a color-setting operator) returns the colorOp to convert. CS/cs
// operators update state in place and return nil.
func buildColorOp(ctx *model.Context, csResources types.Dict, state *csState, toks []csToken, idx int, numBuf []csToken, spaceByKey map[string]*resolvedColorSpace) (*colorOp, error) {
	tok := toks[idx]

	switch tok.text {
	case "CS", "cs":
		name := precedingName(toks, idx)
		if name == "" {
			return nil, nil
		}
		rcs, err := resolveNamedColorSpace(ctx, csResources, name)
		if err != nil {
			return nil, err
		}
		if tok.text == "CS" {
			state.stroke = rcs
		} else {
			state.fill = rcs
		}
		return nil, nil

	case "G", "g", "RG", "rg", "K", "k":
		// DeviceGray/DeviceRGB carry no embedded source profile; per the
		// content-stream conversion rule these operators are left
		// unchanged rather than routed through a (possibly absent)
		// configured default profile. DeviceCMYK K/k operators pass
		// through unchanged as well.
		return nil, nil

	case "SC", "sc", "SCN", "scn":
		stroking := tok.text == "SC" || tok.text == "SCN"
		space := state.fill
		if stroking {
			space = state.stroke
		}
		return colorOpFromBuffer(space, numBuf, tok, stroking, true, spaceByKey)
	}

	return nil, nil
}

func precedingName(toks []csToken, operatorIdx int) string {
	for i := operatorIdx - 1; i >= 0 && i >= operatorIdx-2; i-- {
		if toks[i].kind == tokName {
			return toks[i].text
		}
	}
	return ""
}

func colorOpFromBuffer(space *resolvedColorSpace, numBuf []csToken, opTok csToken, stroking, preserveOperator bool, spaceByKey map[string]*resolvedColorSpace) (*colorOp, error) {
	if space == nil || len(numBuf) == 0 {
		return nil, nil
	}
	channels := channelsFor(space)
	if channels == 0 || len(numBuf) < channels {
		// Separation/DeviceN tint transforms and pattern companions aren't
		// raster colors this converter handles; leave the operator as is.
		return nil, nil
	}

	values := make([]float64, channels)
	for i := 0; i < channels; i++ {
		v, err := strconv.ParseFloat(numBuf[len(numBuf)-channels+i].text, 64)
		if err != nil {
			return nil, err
		}
		values[i] = v
	}

	key := spaceCacheKey(space)
	if _, ok := spaceByKey[key]; !ok {
		spaceByKey[key] = space
	}

	return &colorOp{
		opStart:          numBuf[len(numBuf)-channels].start,
		opEnd:            opTok.end,
		operator:         opTok.text,
		stroking:         stroking,
		space:            space,
		spaceKey:         key,
		values:           values,
		preserveOperator: preserveOperator,
	}, nil
}

func spaceCacheKey(rcs *resolvedColorSpace) string {
	if len(rcs.profile) > 0 {
		return rcs.name + ":" + profileKeyFor("", rcs.profile)
	}
	return rcs.name
}

// resolveNamedColorSpace resolves a CS/cs operand: the device/Pattern
// keywords directly, or a lookup into the page's ColorSpace resources.
func resolveNamedColorSpace(ctx *model.Context, csResources types.Dict, name string) (*resolvedColorSpace, error) {
	switch name {
	case "DeviceGray", "DeviceRGB", "DeviceCMYK":
		return deviceRCS(name), nil
	case "Pattern":
		return nil, nil
	}
	if csResources == nil {
		return nil, nil
	}
	obj, found := csResources.Find(name)
	if !found {
		return nil, nil
	}
	return resolveColorSpace(ctx, obj)
}

// applyContentStreamRewrites splices converted operand text into content,
// end to beginning so earlier byte spans stay valid, per spec.md §4.8's
// byte-span rewriting rule.
func applyContentStreamRewrites(conf model.ColorConfig, content []byte, ops []colorOp, fingerprint string, c *Converter, labResourceName string) ([]byte, error) {
	sorted := make([]colorOp, len(ops))
	copy(sorted, ops)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].opStart < sorted[j].opStart })

	out := make([]byte, len(content))
	copy(out, content)

	for i := len(sorted) - 1; i >= 0; i-- {
		op := sorted[i]
		converted, ok := c.colors.LookupColor(fingerprint, op.spaceKey, op.values)
		if !ok {
			continue
		}

		replacement := renderColorOperands(conf, converted, op, labResourceName)
		out = append(out[:op.opStart], append([]byte(replacement), out[op.opEnd:]...)...)
	}

	return out, nil
}

func renderColorOperands(conf model.ColorConfig, converted []float64, op colorOp, labResourceName string) string {
	parts := make([]string, len(converted))
	for i, v := range converted {
		parts[i] = formatNumber(v)
	}
	values := strings.Join(parts, " ")

	if conf.DestinationColorSpace == "Lab" && labResourceName != "" {
		csOp, scOp := "cs", "scn"
		if op.stroking {
			csOp, scOp = "CS", "SCN"
		}
		return "/" + labResourceName + " " + csOp + "\n" + values + " " + scOp
	}

	operator := op.operator
	if !op.preserveOperator {
		operator = bareOperatorFor(conf.DestinationColorSpace, op.stroking)
	}

	return values + " " + operator
}

// bareOperatorFor returns the device color operator matching dest's
// channel count, falling back to the N-ary SC/sc form (the PDF spec has
// no bare Lab operator) when dest isn't a plain device space. Switching to
// SC/sc here relies on the page coordinator having pointed the active
// color-space resource at dest, per spec.md §4.9.
func bareOperatorFor(dest string, stroking bool) string {
	switch dest {
	case "DeviceGray":
		if stroking {
			return "G"
		}
		return "g"
	case "DeviceRGB":
		if stroking {
			return "RG"
		}
		return "rg"
	case "DeviceCMYK":
		if stroking {
			return "K"
		}
		return "k"
	default:
		if stroking {
			return "SC"
		}
		return "sc"
	}
}
