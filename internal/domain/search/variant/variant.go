package variant

// Origin identifies how a query variant was derived from the original query.
type Origin string

// Variant origin constants.
const (
	// Direct is the original query, untransformed.
	Direct Origin = "direct"
	// Synonym substitutes a dictionary synonym for the whole query.
	Synonym Origin = "synonym"
	// TokenJoin joins the dictionary tokenization with spaces.
	TokenJoin Origin = "token_join"
	// ScriptSplit inserts spaces at Latin-to-Japanese script boundaries.
	ScriptSplit Origin = "script_split"
)

// Trust priors per derivation strategy. Attempt order keeps these
// monotonically non-increasing: direct, then dictionary-derived, then
// script-heuristic variants.
const (
	WeightDirect       = 1.0
	WeightPreprocessed = 0.8
	WeightSplit        = 0.4
)

// Variant is a derived query string carrying a trust weight.
// Variants are copies: deriving one never mutates the original query.
type Variant struct {
	text   string
	origin Origin
	weight float64
}

// New creates a query variant.
func New(text string, origin Origin, weight float64) Variant {
	return Variant{text: text, origin: origin, weight: weight}
}

// Text returns the variant query string.
func (v Variant) Text() string { return v.text }

// Origin returns the derivation strategy.
func (v Variant) Origin() Origin { return v.origin }

// Weight returns the trust prior in (0, 1].
func (v Variant) Weight() float64 { return v.weight }
