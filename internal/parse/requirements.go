package parse

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"medtransport-dispatch/internal/dispatch"
)

// maxUnwrap bounds how many layers of string-encoded JSON are peeled off.
const maxUnwrap = 2

// flag accepts true/false, "true"/"yes"/"1", and 0/1 numbers. Anything else is false.
type flag bool

func (f *flag) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		*f = false
		return nil
	}
	switch t := v.(type) {
	case bool:
		*f = flag(t)
	case float64:
		*f = t != 0
	case string:
		s := strings.ToLower(strings.TrimSpace(t))
		*f = s == "true" || s == "yes" || s == "y" || s == "1"
	default:
		*f = false
	}
	return nil
}

// number accepts JSON numbers and numeric strings. Anything else leaves it unset.
type number struct {
	v   float64
	set bool
}

func (n *number) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(bytes.TrimSpace(b), &v); err != nil {
		return nil
	}
	switch t := v.(type) {
	case float64:
		n.v, n.set = t, true
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(t), 64); err == nil {
			n.v, n.set = f, true
		}
	}
	return nil
}

// tags accepts a list of strings or a single comma separated string.
type tags []string

func (t *tags) UnmarshalJSON(b []byte) error {
	var list []string
	if err := json.Unmarshal(b, &list); err == nil {
		*t = cleanTags(list)
		return nil
	}
	var single string
	if err := json.Unmarshal(b, &single); err == nil {
		*t = cleanTags(strings.Split(single, ","))
	}
	return nil
}

func cleanTags(in []string) []string {
	var out []string
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

type requirementsDoc struct {
	RequiresParamedic  flag `json:"requires_paramedic"`
	RequiresCCT        flag `json:"requires_cct"`
	RequiresVentilator flag `json:"requires_ventilator"`
	RequiresBariatric  flag `json:"requires_bariatric"`
	Specialties        tags `json:"specialties"`
	SpecialtySkills    tags `json:"specialty_skills"`
}

type capabilitiesDoc struct {
	HasParamedic       flag   `json:"has_paramedic"`
	CanDoCCT           flag   `json:"can_do_cct"`
	HasVentilator      flag   `json:"has_ventilator"`
	CanDoBariatric     flag   `json:"can_do_bariatric"`
	MaxWeightLbs       number `json:"max_weight_lbs"`
	MaxWeightCapacity  number `json:"max_weight_capacity"`
	SpecialtyEquipment tags   `json:"specialty_equipment"`
}

// CrewRequirements normalises an incident's requirement data. The input may be a JSON
// object, a JSON string holding an object, empty, or null. Anything that cannot be
// decoded yields no requirements.
func CrewRequirements(raw []byte) dispatch.CrewRequirements {
	var doc requirementsDoc
	if !decodeObject(raw, &doc) {
		return dispatch.CrewRequirements{}
	}
	return dispatch.CrewRequirements{
		RequiresParamedic:  bool(doc.RequiresParamedic),
		RequiresCCT:        bool(doc.RequiresCCT),
		RequiresVentilator: bool(doc.RequiresVentilator),
		RequiresBariatric:  bool(doc.RequiresBariatric),
		Specialties:        append([]string(doc.Specialties), doc.SpecialtySkills...),
	}
}

// Capabilities normalises a unit's capability data with the same rules as CrewRequirements.
func Capabilities(raw []byte) dispatch.Capabilities {
	var doc capabilitiesDoc
	if !decodeObject(raw, &doc) {
		return dispatch.Capabilities{}
	}
	caps := dispatch.Capabilities{
		HasParamedic:       bool(doc.HasParamedic),
		CanDoCCT:           bool(doc.CanDoCCT),
		HasVentilator:      bool(doc.HasVentilator),
		CanDoBariatric:     bool(doc.CanDoBariatric),
		SpecialtyEquipment: []string(doc.SpecialtyEquipment),
	}
	switch {
	case doc.MaxWeightLbs.set:
		v := doc.MaxWeightLbs.v
		caps.MaxWeightLbs = &v
	case doc.MaxWeightCapacity.set:
		v := doc.MaxWeightCapacity.v
		caps.MaxWeightLbs = &v
	}
	return caps
}

// StringList decodes a JSON list of strings, also accepting a string-encoded list or a
// comma separated string. Invalid input yields nil.
func StringList(raw []byte) []string {
	body, ok := unwrap(raw)
	if !ok {
		return nil
	}
	if body[0] != '[' {
		return cleanTags(strings.Split(string(body), ","))
	}
	var list []string
	if err := json.Unmarshal(body, &list); err != nil {
		return nil
	}
	return cleanTags(list)
}

// decodeObject unwraps string-encoded JSON and decodes an object into v.
func decodeObject(raw []byte, v any) bool {
	body, ok := unwrap(raw)
	if !ok || len(body) == 0 || body[0] != '{' {
		return false
	}
	return json.Unmarshal(body, v) == nil
}

// unwrap peels JSON string layers so `"{\"a\":1}"` and `{"a":1}` decode alike.
func unwrap(raw []byte) ([]byte, bool) {
	body := bytes.TrimSpace(raw)
	for i := 0; i < maxUnwrap && len(body) > 0 && body[0] == '"'; i++ {
		var inner string
		if err := json.Unmarshal(body, &inner); err != nil {
			return nil, false
		}
		body = bytes.TrimSpace([]byte(inner))
	}
	if len(body) == 0 || bytes.Equal(body, []byte("null")) {
		return nil, false
	}
	return body, true
}
