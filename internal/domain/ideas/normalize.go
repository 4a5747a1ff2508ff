package ideas

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/bryanwahyu/launchlens/internal/domain/apperr"
)

const (
	DataNotAvailable = "Data not available"

	pendingJustification   = "Assessment pending - insufficient data from analysis."
	estimatedJustification = "Estimated from the overall viability score."
)

// Dimension weights in hundredths: marketDemand and monetizationPotential 0.25,
// technicalFeasibility and differentiation 0.20, timing 0.10.
const (
	weightMarketDemand          = 25
	weightMonetizationPotential = 25
	weightTechnicalFeasibility  = 20
	weightDifferentiation       = 20
	weightTiming                = 10
)

var DefaultValidationSteps = []string{
	"Interview 10-15 potential customers about the problem",
	"Publish a landing page and measure sign-up interest",
	"Review competitor offerings and their pricing",
	"Run a small paid acquisition test to gauge demand",
}

var (
	leadingIntRe    = regexp.MustCompile(`^\s*(-?\d+)`)
	leadingNumberRe = regexp.MustCompile(`^\s*(\d+(?:\.\d+)?)`)
)

// ScoreSource supplies jitter for synthesized scores. Intn returns a value in [0,n).
type ScoreSource interface {
	Intn(n int) int
}

type lockedRand struct {
	mu sync.Mutex
	r  *rand.Rand
}

func (l *lockedRand) Intn(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Intn(n)
}

// NewRandomSource returns a goroutine-safe ScoreSource. seed 0 seeds from the clock.
func NewRandomSource(seed int64) ScoreSource {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &lockedRand{r: rand.New(rand.NewSource(seed))}
}

// Normalizer turns loosely shaped LLM output into a complete Report.
type Normalizer struct {
	Scores ScoreSource
}

func NewNormalizer(scores ScoreSource) *Normalizer {
	if scores == nil {
		scores = NewRandomSource(0)
	}
	return &Normalizer{Scores: scores}
}

// ParseObject strips markdown fences and decodes a JSON object. Anything else is
// reported as a malformed upstream response carrying the raw text.
func ParseObject(raw string) (map[string]any, error) {
	text := StripFences(raw)
	var out map[string]any
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		return nil, apperr.Malformed(raw, err)
	}
	if out == nil {
		return nil, apperr.Malformed(raw, fmt.Errorf("expected a JSON object"))
	}
	return out, nil
}

// StripFences removes a surrounding ```json ... ``` block if present.
func StripFences(raw string) string {
	text := strings.TrimSpace(raw)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		text = text[i+1:]
	} else {
		text = strings.TrimPrefix(text, "```")
	}
	text = strings.TrimSpace(text)
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}

// NormalizeText parses raw LLM text and normalizes it.
func (n *Normalizer) NormalizeText(raw string) (Report, int, error) {
	obj, err := ParseObject(raw)
	if err != nil {
		return Report{}, 0, err
	}
	rep, score := n.Normalize(obj)
	return rep, score, nil
}

// Normalize returns a fully populated report and the viability score derived from
// its weighted overall score. The model's own viabilityScore never wins.
func (n *Normalizer) Normalize(raw map[string]any) (Report, int) {
	var rep Report

	verdict := stringOr(raw["verdict"], "")
	bd, ok := raw["detailedViabilityBreakdown"].(map[string]any)
	var tenths int
	if !ok {
		rep.Breakdown, tenths = n.synthesizeBreakdown(raw["viabilityScore"])
	} else {
		rep.Breakdown, tenths = n.repairBreakdown(bd)
	}
	score := clamp((tenths+5)/10, 0, 10)

	if verdict == "" {
		verdict = VerdictFor(score)
	}
	rep.Verdict = verdict
	if rep.Breakdown.OverallJustification == "" {
		rep.Breakdown.OverallJustification = verdict
	}

	rep.MarketSignals = marketSignals(raw["marketSignals"])
	rep.ValidationSteps = stringSlice(raw["validationSteps"])
	if len(rep.ValidationSteps) == 0 {
		rep.ValidationSteps = append([]string(nil), DefaultValidationSteps...)
	}
	rep.Strengths = stringSlice(raw["strengths"])
	rep.Challenges = stringSlice(raw["challenges"])
	rep.LeanMVP = stringSlice(raw["leanMVP"])
	rep.Distribution = stringSlice(raw["distribution"])
	rep.Monetization = stringSlice(raw["monetization"])
	rep.BuildCost = buildCost(raw["buildCost"])
	rep.TimeToMVP = stringOr(raw["timeToMVP"], "")
	rep.Summary = stringOr(raw["summary"], "")
	rep.ProblemFit = stringOr(raw["problemFit"], "")
	rep.Audience = audience(raw["audience"])
	return rep, score
}

func (n *Normalizer) synthesizeBreakdown(legacy any) (Breakdown, int) {
	base, ok := leadingInt(legacy)
	if !ok {
		base = 5
	}
	base = clamp(base, 1, 10)
	jitter := func() Dimension {
		return Dimension{Score: clamp(base+n.Scores.Intn(3)-1, 1, 10), Justification: estimatedJustification}
	}
	b := Breakdown{
		MarketDemand:          jitter(),
		TechnicalFeasibility:  jitter(),
		Differentiation:       jitter(),
		MonetizationPotential: jitter(),
		Timing:                jitter(),
	}
	b.WeightedOverallScore = FormatTenths(base * 10)
	return b, base * 10
}

func (n *Normalizer) repairBreakdown(bd map[string]any) (Breakdown, int) {
	dim := func(key string) Dimension {
		if d, ok := parseDimension(bd[key]); ok {
			return d
		}
		return Dimension{Score: 4 + n.Scores.Intn(4), Justification: pendingJustification}
	}
	b := Breakdown{
		MarketDemand:          dim("marketDemand"),
		TechnicalFeasibility:  dim("technicalFeasibility"),
		Differentiation:       dim("differentiation"),
		MonetizationPotential: dim("monetizationPotential"),
		Timing:                dim("timing"),
	}
	tenths, ok := parseTenths(bd["weightedOverallScore"])
	if !ok {
		tenths = WeightedTenths(b)
	}
	b.WeightedOverallScore = FormatTenths(tenths)
	b.OverallJustification = stringOr(bd["overallJustification"], "")
	return b, tenths
}

// WeightedTenths applies the fixed weights and rounds half-up to tenths.
func WeightedTenths(b Breakdown) int {
	hundredths := b.MarketDemand.Score*weightMarketDemand +
		b.MonetizationPotential.Score*weightMonetizationPotential +
		b.TechnicalFeasibility.Score*weightTechnicalFeasibility +
		b.Differentiation.Score*weightDifferentiation +
		b.Timing.Score*weightTiming
	return (hundredths + 5) / 10
}

// FormatTenths renders 74 as "7.4".
func FormatTenths(t int) string {
	return fmt.Sprintf("%d.%d", t/10, t%10)
}

// VerdictFor returns the band text for a viability score.
func VerdictFor(score int) string {
	switch {
	case score >= 8:
		return "Excellent viability for indie development"
	case score >= 6:
		return "Good viability with manageable risks"
	case score >= 4:
		return "Fair viability requiring careful execution"
	default:
		return "Poor viability with significant challenges"
	}
}

// WeakestFirst lists dimension names ordered by ascending score.
func WeakestFirst(b Breakdown) []NamedDimension {
	out := []NamedDimension{
		{"marketDemand", b.MarketDemand},
		{"technicalFeasibility", b.TechnicalFeasibility},
		{"differentiation", b.Differentiation},
		{"monetizationPotential", b.MonetizationPotential},
		{"timing", b.Timing},
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score < out[j].Score })
	return out
}

type NamedDimension struct {
	Name string
	Dimension
}

// ==== field extractors ====

func parseDimension(v any) (Dimension, bool) {
	switch d := v.(type) {
	case map[string]any:
		score, ok := leadingInt(d["score"])
		if !ok {
			return Dimension{}, false
		}
		return Dimension{Score: clamp(score, 1, 10), Justification: stringOr(d["justification"], pendingJustification)}, true
	default:
		score, ok := leadingInt(d)
		if !ok {
			return Dimension{}, false
		}
		return Dimension{Score: clamp(score, 1, 10), Justification: pendingJustification}, true
	}
}

// leadingInt reads a score from any JSON or Go number, or from the leading integer
// of a string. Out-of-range numbers saturate instead of wrapping.
func leadingInt(v any) (int, bool) {
	if s, ok := v.(string); ok {
		m := leadingIntRe.FindStringSubmatch(s)
		if m == nil {
			return 0, false
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			// too many digits for int
			if strings.HasPrefix(strings.TrimSpace(m[1]), "-") {
				return math.MinInt32, true
			}
			return math.MaxInt32, true
		}
		return n, true
	}
	f, ok := number(v)
	if !ok {
		return 0, false
	}
	return saturate(math.Round(f)), true
}

func parseTenths(v any) (int, bool) {
	var f float64
	if s, ok := v.(string); ok {
		m := leadingNumberRe.FindStringSubmatch(s)
		if m == nil {
			return 0, false
		}
		parsed, err := strconv.ParseFloat(m[1], 64)
		if err != nil && !errors.Is(err, strconv.ErrRange) {
			return 0, false
		}
		f = parsed
	} else {
		var ok bool
		if f, ok = number(v); !ok {
			return 0, false
		}
	}
	if math.IsNaN(f) {
		return 0, false
	}
	return clamp(saturate(math.Round(f*10)), 0, 100), true
}

// number converts the numeric kinds a decoded or hand-built map may carry.
func number(v any) (float64, bool) {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int8:
		f = float64(x)
	case int16:
		f = float64(x)
	case int32:
		f = float64(x)
	case int64:
		f = float64(x)
	case uint:
		f = float64(x)
	case uint8:
		f = float64(x)
	case uint16:
		f = float64(x)
	case uint32:
		f = float64(x)
	case uint64:
		f = float64(x)
	case json.Number:
		parsed, err := x.Float64()
		if err != nil && !errors.Is(err, strconv.ErrRange) {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

// saturate converts f to int, pinning values outside the int32 range.
func saturate(f float64) int {
	switch {
	case f >= math.MaxInt32:
		return math.MaxInt32
	case f <= math.MinInt32:
		return math.MinInt32
	}
	return int(f)
}

func marketSignals(v any) MarketSignals {
	m, _ := v.(map[string]any)
	return MarketSignals{
		SearchVolume:       stringOr(m["searchVolume"], DataNotAvailable),
		CompetitionDensity: stringOr(m["competitionDensity"], DataNotAvailable),
		FundingActivity:    stringOr(m["fundingActivity"], DataNotAvailable),
		TrendDirection:     stringOr(m["trendDirection"], DataNotAvailable),
	}
}

func buildCost(v any) BuildCost {
	switch x := v.(type) {
	case map[string]any:
		return BuildCost{
			Estimate:  costLevel(stringOr(x["estimate"], "")),
			Breakdown: stringOr(x["breakdown"], ""),
		}
	case string:
		return BuildCost{Estimate: costLevel(x), Breakdown: strings.TrimSpace(x)}
	}
	return BuildCost{Estimate: "Unknown"}
}

func costLevel(s string) string {
	fields := strings.Fields(strings.ToLower(s))
	if len(fields) == 0 {
		return "Unknown"
	}
	switch strings.Trim(fields[0], " -:,.") {
	case "low":
		return "Low"
	case "medium", "moderate":
		return "Medium"
	case "high":
		return "High"
	}
	return "Unknown"
}

func audience(v any) Audience {
	switch x := v.(type) {
	case map[string]any:
		return Audience{Primary: stringOr(x["primary"], ""), Secondary: stringOr(x["secondary"], "")}
	case string:
		return Audience{Primary: strings.TrimSpace(x)}
	}
	return Audience{}
}

func stringOr(v any, fallback string) string {
	s, ok := v.(string)
	if !ok || strings.TrimSpace(s) == "" {
		return fallback
	}
	return strings.TrimSpace(s)
}

func stringSlice(v any) []string {
	out := []string{}
	switch x := v.(type) {
	case []any:
		for _, item := range x {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
	case string:
		if strings.TrimSpace(x) != "" {
			out = append(out, strings.TrimSpace(x))
		}
	}
	return out
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
