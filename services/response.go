package services

import (
	"strconv"
	"strings"
)

// ResponseVariant names the kind of defense filed by the responding party
type ResponseVariant string

const (
	ResponseOrdinary            ResponseVariant = "ORDINARY"             // contestación
	ResponseAcquiescence        ResponseVariant = "ACQUIESCENCE"         // allanamiento
	ResponseProceduralObjection ResponseVariant = "PROCEDURAL_OBJECTION" // excepción previa
	ResponseCounterclaim        ResponseVariant = "COUNTERCLAIM"         // reconvención
)

// ResponseContent is the closed set of response variants. Each variant
// validates its own required fields before a document is built from it.
type ResponseContent interface {
	Variant() ResponseVariant
	Validate() error
	Sections() map[string]string
	isResponse()
}

// OrdinaryResponse contests the facts and raises merit defenses
type OrdinaryResponse struct {
	Facts    string `json:"facts"`
	Defenses string `json:"defenses"`
}

// Acquiescence accepts the claim without contest
type Acquiescence struct {
	Statement string `json:"statement"`
}

// ProceduralObjection raises threshold objections to be resolved before the merits
type ProceduralObjection struct {
	Objections []string `json:"objections"`
	Grounds    string   `json:"grounds"`
}

// Counterclaim answers the claim and files a cross-claim against the filer
type Counterclaim struct {
	Defenses   string `json:"defenses"`
	Claim      string `json:"claim"`
	ClaimValue int64  `json:"claim_value"`
}

func (OrdinaryResponse) Variant() ResponseVariant    { return ResponseOrdinary }
func (Acquiescence) Variant() ResponseVariant        { return ResponseAcquiescence }
func (ProceduralObjection) Variant() ResponseVariant { return ResponseProceduralObjection }
func (Counterclaim) Variant() ResponseVariant        { return ResponseCounterclaim }

func (OrdinaryResponse) isResponse()    {}
func (Acquiescence) isResponse()        {}
func (ProceduralObjection) isResponse() {}
func (Counterclaim) isResponse()        {}

func (r OrdinaryResponse) Validate() error {
	if isBlank(r.Facts) {
		return validationError("an ordinary response must address the facts of the claim")
	}
	if isBlank(r.Defenses) {
		return validationError("an ordinary response must state its defenses")
	}
	return nil
}

func (r Acquiescence) Validate() error {
	if isBlank(r.Statement) {
		return validationError("an acquiescence requires the statement accepting the claim")
	}
	return nil
}

func (r ProceduralObjection) Validate() error {
	if len(nonBlank(r.Objections)) == 0 {
		return validationError("a procedural objection must list at least one objection")
	}
	if isBlank(r.Grounds) {
		return validationError("a procedural objection requires its grounds")
	}
	return nil
}

func (r Counterclaim) Validate() error {
	if isBlank(r.Defenses) {
		return validationError("a counterclaim must state the defenses to the original claim")
	}
	if isBlank(r.Claim) {
		return validationError("a counterclaim requires the cross-claim")
	}
	if r.ClaimValue < 0 {
		return validationError("counterclaim value cannot be negative")
	}
	return nil
}

func (r OrdinaryResponse) Sections() map[string]string {
	return map[string]string{"variant": string(ResponseOrdinary), "facts": r.Facts, "defenses": r.Defenses}
}

func (r Acquiescence) Sections() map[string]string {
	return map[string]string{"variant": string(ResponseAcquiescence), "statement": r.Statement}
}

func (r ProceduralObjection) Sections() map[string]string {
	return map[string]string{
		"variant":    string(ResponseProceduralObjection),
		"objections": joinLines(r.Objections),
		"grounds":    r.Grounds,
	}
}

func (r Counterclaim) Sections() map[string]string {
	return map[string]string{
		"variant":            string(ResponseCounterclaim),
		"defenses":           r.Defenses,
		"counterclaim":       r.Claim,
		"counterclaim_value": strconv.FormatInt(r.ClaimValue, 10),
	}
}

// ResponseInput is the wire form of a response; exactly the fields of
// Variant are read.
type ResponseInput struct {
	Variant    ResponseVariant `json:"variant"`
	Facts      string          `json:"facts,omitempty"`
	Defenses   string          `json:"defenses,omitempty"`
	Statement  string          `json:"statement,omitempty"`
	Objections []string        `json:"objections,omitempty"`
	Grounds    string          `json:"grounds,omitempty"`
	Claim      string          `json:"claim,omitempty"`
	ClaimValue int64           `json:"claim_value,omitempty"`
}

// Content builds the typed variant named by in.Variant
func (in ResponseInput) Content() (ResponseContent, error) {
	var content ResponseContent
	switch in.Variant {
	case ResponseOrdinary:
		content = OrdinaryResponse{Facts: in.Facts, Defenses: in.Defenses}
	case ResponseAcquiescence:
		content = Acquiescence{Statement: in.Statement}
	case ResponseProceduralObjection:
		content = ProceduralObjection{Objections: in.Objections, Grounds: in.Grounds}
	case ResponseCounterclaim:
		content = Counterclaim{Defenses: in.Defenses, Claim: in.Claim, ClaimValue: in.ClaimValue}
	default:
		return nil, validationError("unknown response variant %q", in.Variant)
	}
	if err := content.Validate(); err != nil {
		return nil, err
	}
	return content, nil
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

func nonBlank(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if !isBlank(item) {
			out = append(out, strings.TrimSpace(item))
		}
	}
	return out
}

// joinLines renders a list section as one item per line
func joinLines(items []string) string {
	return strings.Join(nonBlank(items), "\n")
}
