package layout

// eefiLayouts reproduces the EEFI positional field map verbatim from the
// acquirer's record layout manual. Financial record value
// ranges differ per type because the manual grew by accretion; they are
// transcribed exactly rather than normalized, since normalizing them is
// exactly the kind of "improvement" that silently breaks byte-for-byte
// compatibility with downstream consumers.
var eefiLayouts = map[string]RecordLayout{
	// 030 is the file header. sequencia is the file sequence number;
	// pv_grupo is overwritten per-PV in the child's rewritten header.
	"030": {
		Type: "030",
		Fields: []Field{
			{Name: "data", Start: 3, End: 11, Kind: Alphanumeric},
			{Name: "sequencia", Start: 75, End: 81, Kind: Numeric},
			{Name: "pv_grupo", Start: 81, End: 90, Kind: Numeric},
		},
	},
	// 032 opens a PV block in "complete" mode; pv becomes current_pv for
	// every following 034/035/036/038/043 until the next 032.
	"032": {
		Type: "032",
		Fields: []Field{
			{Name: "pv", Start: 3, End: 12, Kind: Numeric},
		},
	},
	"034": {
		Type: "034",
		Fields: []Field{
			{Name: "valor", Start: 31, End: 46, Kind: Money},
		},
	},
	"035": {
		Type: "035",
		Fields: []Field{
			{Name: "valor", Start: 29, End: 44, Kind: Money},
		},
	},
	"036": {
		Type: "036",
		Fields: []Field{
			{Name: "valor", Start: 31, End: 46, Kind: Money},
		},
	},
	"038": {
		Type: "038",
		Fields: []Field{
			{Name: "valor", Start: 31, End: 46, Kind: Money},
		},
	},
	"043": {
		Type: "043",
		Fields: []Field{
			{Name: "valor", Start: 48, End: 63, Kind: Money},
		},
	},
	// 040 is the simplified-mode summary record: it carries its own PV
	// (located by the router's robust extractor, see eefiRobustPV in the
	// router package) and a
	// credito-normal value.
	"040": {
		Type: "040",
		Fields: []Field{
			{Name: "valor", Start: 12, End: 27, Kind: Money},
		},
	},
	// 045 is a cancellation, folded into the ajuste_deb dimension.
	"045": {
		Type: "045",
		Fields: []Field{
			{Name: "valor", Start: 12, End: 27, Kind: Money},
		},
	},
	// 052 is the per-PV trailer the Trailer Synthesizer rebuilds. Width is
	// the canonical 400-char, space-padded total line width.
	"052": {
		Type:  "052",
		Width: 400,
		Fields: []Field{
			{Name: "qtde_matrizes", Start: 3, End: 7, Kind: Numeric},
			{Name: "qtde_registros", Start: 7, End: 13, Kind: Numeric},
			{Name: "pv_solicitante", Start: 13, End: 22, Kind: Numeric},
			{Name: "qtd_cred_norm", Start: 22, End: 26, Kind: Numeric},
			{Name: "valor_rv", Start: 26, End: 41, Kind: Money},
			{Name: "qtd_ant", Start: 41, End: 47, Kind: Numeric},
			{Name: "valor_ant", Start: 47, End: 62, Kind: Money},
			{Name: "qtd_aj_cred", Start: 62, End: 66, Kind: Numeric},
			{Name: "valor_aj_cred", Start: 66, End: 81, Kind: Money},
			{Name: "qtd_aj_deb", Start: 81, End: 85, Kind: Numeric},
			{Name: "valor_aj_deb", Start: 85, End: 100, Kind: Money},
		},
	},
}
