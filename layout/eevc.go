package layout

// eevcLayouts reproduces the EEVC positional field map from the acquirer's
// record layout manual.
//
// The 026 trailer's canonical total width is not stated explicitly in the
// manual excerpt this was transcribed from; it is set here to 148 bytes to
// match the mother file's own 028 trailer width (whose "valor total
// liquido" field sits at [133,148)), so that every byte outside the named
// fields is simply zero-filled padding "per manual". This is
// an open-question resolution recorded in DESIGN.md; it should be verified
// against a reference mother+children pair before being treated as load
// bearing for a new acquirer variant.
var eevcLayouts = map[string]RecordLayout{
	"002": {
		Type: "002",
		Fields: []Field{
			{Name: "data_emissao", Start: 3, End: 11, Kind: Alphanumeric},
			// pv_header is the header-rewrite field the Child Writer
			// overwrites with the bucket PV: bytes
			// [81,90) rewritten, all others left intact.
			{Name: "pv_header", Start: 81, End: 90, Kind: Numeric},
		},
	},
	"004": {
		Type: "004",
		Fields: []Field{
			{Name: "pv", Start: 3, End: 12, Kind: Numeric},
		},
	},
	"006": {Type: "006", Fields: []Field{{Name: "valor_liquido", Start: 114, End: 129, Kind: Money}}},
	"010": {Type: "010", Fields: []Field{{Name: "valor_liquido", Start: 114, End: 129, Kind: Money}}},
	"016": {Type: "016", Fields: []Field{{Name: "valor_liquido", Start: 114, End: 129, Kind: Money}}},
	"022": {Type: "022", Fields: []Field{{Name: "valor_liquido", Start: 114, End: 129, Kind: Money}}},
	// 026 is the per-PV trailer rebuilt by the Trailer Synthesizer.
	"026": {
		Type:  "026",
		Width: 148,
		Fields: []Field{
			{Name: "pv", Start: 3, End: 12, Kind: Numeric},
			{Name: "valor_total_liquido", Start: 124, End: 138, Kind: Money},
		},
	},
	// 028 is the mother file's own trailer; it is parsed (for
	// reconciliation) but never synthesized — it is copied verbatim into
	// each child for downstream reference.
	"028": {
		Type: "028",
		Fields: []Field{
			{Name: "valor_total_liquido", Start: 133, End: 148, Kind: Money},
		},
	},
}
