package token

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"time"
)

// Kind tags the type held by a ClaimValue.
type Kind int

const (
	KindNull Kind = iota
	KindString
	KindNumber
	KindBool
	KindObject
	KindArray
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindObject:
		return "object"
	case KindArray:
		return "array"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ClaimValue is one JSON value from a token payload. Only the field matching
// Kind is set.
type ClaimValue struct {
	Kind   Kind
	Str    string
	Num    json.Number
	Bool   bool
	Object ClaimSet
	Array  []ClaimValue
}

// ClaimSet is an ordered string-keyed map of claim values. Keys keep the
// order in which they first appeared in the payload.
type ClaimSet struct {
	keys   []string
	values map[string]ClaimValue
}

// Get returns the value stored under name.
func (s ClaimSet) Get(name string) (ClaimValue, bool) {
	v, ok := s.values[name]
	return v, ok
}

// Keys returns claim names in payload order.
func (s ClaimSet) Keys() []string {
	return append([]string(nil), s.keys...)
}

// Len returns the number of claims.
func (s ClaimSet) Len() int {
	return len(s.keys)
}

// set stores v under name. A repeated name keeps its first position and the
// last value, matching encoding/json.
func (s *ClaimSet) set(name string, v ClaimValue) {
	if s.values == nil {
		s.values = make(map[string]ClaimValue)
	}
	if _, ok := s.values[name]; !ok {
		s.keys = append(s.keys, name)
	}
	s.values[name] = v
}

func (s ClaimSet) without(names ...string) ClaimSet {
	var out ClaimSet
	for _, k := range s.keys {
		skip := false
		for _, n := range names {
			if k == n {
				skip = true
				break
			}
		}
		if !skip {
			out.set(k, s.values[k])
		}
	}
	return out
}

// Claims are the verified contents of a bearer token.
type Claims struct {
	Subject   string
	ExpiresAt time.Time
	// Extra holds every payload member other than sub and exp.
	Extra ClaimSet
}

func parseClaims(payload []byte) (Claims, error) {
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrMalformedClaims, err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return Claims{}, fmt.Errorf("%w: payload is not an object", ErrMalformedClaims)
	}

	all, err := decodeObject(dec)
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrMalformedClaims, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return Claims{}, fmt.Errorf("%w: trailing data after payload", ErrMalformedClaims)
	}

	sub, ok := all.Get("sub")
	if !ok || sub.Kind != KindString || sub.Str == "" {
		return Claims{}, fmt.Errorf("%w: missing subject", ErrMalformedClaims)
	}

	exp, ok := all.Get("exp")
	if !ok || exp.Kind != KindNumber {
		return Claims{}, fmt.Errorf("%w: missing expiry", ErrMalformedClaims)
	}
	expiresAt, err := numericDate(exp.Num)
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrMalformedClaims, err)
	}

	return Claims{
		Subject:   sub.Str,
		ExpiresAt: expiresAt,
		Extra:     all.without("sub", "exp"),
	}, nil
}

func numericDate(n json.Number) (time.Time, error) {
	f, err := n.Float64()
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return time.Time{}, fmt.Errorf("invalid numeric date %q", n)
	}
	sec, frac := math.Modf(f)
	return time.Unix(int64(sec), int64(frac*1e9)).UTC(), nil
}

func decodeValue(dec *json.Decoder) (ClaimValue, error) {
	tok, err := dec.Token()
	if err != nil {
		return ClaimValue{}, err
	}

	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			obj, err := decodeObject(dec)
			return ClaimValue{Kind: KindObject, Object: obj}, err
		case '[':
			arr, err := decodeArray(dec)
			return ClaimValue{Kind: KindArray, Array: arr}, err
		}
		return ClaimValue{}, fmt.Errorf("unexpected delimiter %q", t)
	case string:
		return ClaimValue{Kind: KindString, Str: t}, nil
	case json.Number:
		return ClaimValue{Kind: KindNumber, Num: t}, nil
	case bool:
		return ClaimValue{Kind: KindBool, Bool: t}, nil
	case nil:
		return ClaimValue{Kind: KindNull}, nil
	}
	return ClaimValue{}, fmt.Errorf("unexpected token %v", tok)
}

// decodeObject reads members up to and including the closing brace.
func decodeObject(dec *json.Decoder) (ClaimSet, error) {
	var set ClaimSet
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return ClaimSet{}, err
		}
		name, ok := tok.(string)
		if !ok {
			return ClaimSet{}, fmt.Errorf("unexpected object key %v", tok)
		}
		v, err := decodeValue(dec)
		if err != nil {
			return ClaimSet{}, err
		}
		set.set(name, v)
	}
	if _, err := dec.Token(); err != nil {
		return ClaimSet{}, err
	}
	return set, nil
}

func decodeArray(dec *json.Decoder) ([]ClaimValue, error) {
	arr := []ClaimValue{}
	for dec.More() {
		v, err := decodeValue(dec)
		if err != nil {
			return nil, err
		}
		arr = append(arr, v)
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return arr, nil
}
