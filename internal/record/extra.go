package record

import (
	"bytes"
	"encoding/json"
	"sort"
)

// Extra holds the fields of a stored object that reqtrack does not model.
// They survive a load/save cycle unchanged and are written after the known
// fields in key order.
type Extra map[string]json.RawMessage

// decodeKnown fills known (a pointer to a method-less copy of the record
// type) from data and returns whatever keys it did not consume.
func decodeKnown(data []byte, known any) (Extra, error) {
	if err := json.Unmarshal(data, known); err != nil {
		return nil, err
	}
	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, nil
	}

	// Every known field is written on encode, so the encoded form names
	// exactly the keys the type models.
	enc, err := encode(known)
	if err != nil {
		return nil, err
	}
	var modeled map[string]json.RawMessage
	if err := json.Unmarshal(enc, &modeled); err != nil {
		return nil, err
	}
	for k := range modeled {
		delete(all, k)
	}
	if len(all) == 0 {
		return nil, nil
	}
	return all, nil
}

// encodeKnown writes known followed by extra.
func encodeKnown(known any, extra Extra) ([]byte, error) {
	data, err := encode(known)
	if err != nil || len(extra) == 0 {
		return data, err
	}

	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	buf.Write(data[:len(data)-1])
	for _, k := range keys {
		name, err := encode(k)
		if err != nil {
			return nil, err
		}
		buf.WriteByte(',')
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(extra[k])
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// encode marshals v without HTML escaping, matching how family files are
// written.
func encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

type (
	releaseJSON      Release
	artifactJSON     Artifact
	requirementJSON  Requirement
	featureJSON      Feature
	epicJSON         Epic
	storyJSON        Story
	epicVersionJSON  EpicVersion
	storyVersionJSON StoryVersion
	testIntentJSON   TestIntent
)

func (r Release) MarshalJSON() ([]byte, error) { return encodeKnown(releaseJSON(r), r.Extra) }
func (r *Release) UnmarshalJSON(data []byte) error {
	var k releaseJSON
	extra, err := decodeKnown(data, &k)
	if err == nil {
		*r = Release(k)
		r.Extra = extra
	}
	return err
}

func (r Artifact) MarshalJSON() ([]byte, error) { return encodeKnown(artifactJSON(r), r.Extra) }
func (r *Artifact) UnmarshalJSON(data []byte) error {
	var k artifactJSON
	extra, err := decodeKnown(data, &k)
	if err == nil {
		*r = Artifact(k)
		r.Extra = extra
	}
	return err
}

func (r Requirement) MarshalJSON() ([]byte, error) {
	return encodeKnown(requirementJSON(r), r.Extra)
}
func (r *Requirement) UnmarshalJSON(data []byte) error {
	var k requirementJSON
	extra, err := decodeKnown(data, &k)
	if err == nil {
		*r = Requirement(k)
		r.Extra = extra
	}
	return err
}

func (r Feature) MarshalJSON() ([]byte, error) { return encodeKnown(featureJSON(r), r.Extra) }
func (r *Feature) UnmarshalJSON(data []byte) error {
	var k featureJSON
	extra, err := decodeKnown(data, &k)
	if err == nil {
		*r = Feature(k)
		r.Extra = extra
	}
	return err
}

func (r Epic) MarshalJSON() ([]byte, error) { return encodeKnown(epicJSON(r), r.Extra) }
func (r *Epic) UnmarshalJSON(data []byte) error {
	var k epicJSON
	extra, err := decodeKnown(data, &k)
	if err == nil {
		*r = Epic(k)
		r.Extra = extra
	}
	return err
}

func (r Story) MarshalJSON() ([]byte, error) { return encodeKnown(storyJSON(r), r.Extra) }
func (r *Story) UnmarshalJSON(data []byte) error {
	var k storyJSON
	extra, err := decodeKnown(data, &k)
	if err == nil {
		*r = Story(k)
		r.Extra = extra
	}
	return err
}

func (v EpicVersion) MarshalJSON() ([]byte, error) {
	return encodeKnown(epicVersionJSON(v), v.Extra)
}
func (v *EpicVersion) UnmarshalJSON(data []byte) error {
	var k epicVersionJSON
	extra, err := decodeKnown(data, &k)
	if err == nil {
		*v = EpicVersion(k)
		v.Extra = extra
	}
	return err
}

func (v StoryVersion) MarshalJSON() ([]byte, error) {
	return encodeKnown(storyVersionJSON(v), v.Extra)
}
func (v *StoryVersion) UnmarshalJSON(data []byte) error {
	var k storyVersionJSON
	extra, err := decodeKnown(data, &k)
	if err == nil {
		*v = StoryVersion(k)
		v.Extra = extra
	}
	return err
}

func (t TestIntent) MarshalJSON() ([]byte, error) { return encodeKnown(testIntentJSON(t), t.Extra) }
func (t *TestIntent) UnmarshalJSON(data []byte) error {
	var k testIntentJSON
	extra, err := decodeKnown(data, &k)
	if err == nil {
		*t = TestIntent(k)
		t.Extra = extra
	}
	return err
}
