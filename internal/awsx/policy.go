package awsx

import (
	"encoding/json"
	"fmt"
)

// PolicyDocument is the subset of the IAM policy grammar the provisioner
// reads and writes. Fields that can legally be a bare string or an array in
// provider output use StringList so round-trips are lossless.
type PolicyDocument struct {
	Version   string            `json:"Version"`
	Statement []PolicyStatement `json:"Statement"`
}

type PolicyStatement struct {
	Sid       string     `json:"Sid,omitempty"`
	Effect    string     `json:"Effect"`
	Principal *Principal `json:"Principal,omitempty"`
	Action    StringList `json:"Action,omitempty"`
	Resource  StringList `json:"Resource,omitempty"`
	Condition any        `json:"Condition,omitempty"`
}

type Principal struct {
	AWS     StringList `json:"AWS,omitempty"`
	Service StringList `json:"Service,omitempty"`
}

// StringList unmarshals both `"x"` and `["x","y"]`, and marshals a single
// element back to the bare-string form the provider emits.
type StringList []string

func (l *StringList) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*l = StringList{single}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("string or string array expected: %w", err)
	}
	*l = StringList(many)
	return nil
}

func (l StringList) MarshalJSON() ([]byte, error) {
	if len(l) == 1 {
		return json.Marshal(l[0])
	}
	return json.Marshal([]string(l))
}

// Contains reports whether v is present in the list.
func (l StringList) Contains(v string) bool {
	for _, s := range l {
		if s == v {
			return true
		}
	}
	return false
}

// MarshalPolicy serializes a policy document for an API call.
func MarshalPolicy(doc PolicyDocument) (string, error) {
	b, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("marshal policy document: %w", err)
	}
	return string(b), nil
}

// UnmarshalPolicy parses a policy document returned by the provider.
func UnmarshalPolicy(raw string) (PolicyDocument, error) {
	var doc PolicyDocument
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return PolicyDocument{}, fmt.Errorf("unmarshal policy document: %w", err)
	}
	return doc, nil
}
