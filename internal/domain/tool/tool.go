// Package tool defines tagged tool responses exchanged between agents.
// Every payload carries an explicit type tag; consumers dispatch on the tag only.
package tool

import (
	"encoding/json"
	"fmt"

	"github.com/kailas-cloud/eshoplite/internal/domain"
)

// Type tags a tool response variant.
type Type string

const (
	TypeProductsSearch  Type = "products_search"
	TypeWeather         Type = "weather"
	TypeParkInformation Type = "park_information"
	TypeOnlineSearch    Type = "online_search"
)

// Payload is implemented by every tool response variant.
type Payload interface {
	ToolType() Type
}

// ProductsSearch wraps a product search result.
type ProductsSearch struct {
	SearchResponse domain.SearchResponse `json:"searchResponse"`
}

// Weather describes the weather in a city.
type Weather struct {
	CityName         string `json:"cityName"`
	WeatherCondition string `json:"weatherCondition"`
}

// ParkInformation describes a park.
type ParkInformation struct {
	ParkName           string `json:"parkName"`
	ParkInformation    string `json:"parkInformation"`
	OpeningHours       string `json:"openingHours"`
	Location           string `json:"location"`
	TransportationType string `json:"transportationType"`
	Facilities         string `json:"facilities"`
	ParkDescription    string `json:"parkDescription"`
}

// OnlineSearch carries web research results.
type OnlineSearch struct {
	SearchTerm    string `json:"searchTerm"`
	SearchResults string `json:"searchResults"`
}

func (ProductsSearch) ToolType() Type { return TypeProductsSearch }

func (Weather) ToolType() Type { return TypeWeather }

func (ParkInformation) ToolType() Type { return TypeParkInformation }

func (OnlineSearch) ToolType() Type { return TypeOnlineSearch }

// Response is a decoded tool response.
type Response struct {
	Type       Type
	ToolCallID string
	Payload    Payload
}

// New builds a response tagged from the payload variant.
func New(callID string, p Payload) Response {
	return Response{Type: p.ToolType(), ToolCallID: callID, Payload: p}
}

type envelope struct {
	Type       Type            `json:"type"`
	ToolCallID string          `json:"toolCallId"`
	Data       json.RawMessage `json:"data"`
}

// MarshalJSON writes {type, toolCallId, data}.
func (r Response) MarshalJSON() ([]byte, error) {
	if r.Payload == nil {
		return nil, fmt.Errorf("tool response %q has no payload", r.Type)
	}
	if r.Type != "" && r.Type != r.Payload.ToolType() {
		return nil, fmt.Errorf("tool response tag %q does not match payload %q", r.Type, r.Payload.ToolType())
	}
	data, err := json.Marshal(r.Payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", r.Payload.ToolType(), err)
	}
	return json.Marshal(envelope{Type: r.Payload.ToolType(), ToolCallID: r.ToolCallID, Data: data})
}

// UnmarshalJSON reads the envelope and decodes data by tag.
func (r *Response) UnmarshalJSON(b []byte) error {
	decoded, err := Decode(b)
	if err != nil {
		return err
	}
	*r = decoded
	return nil
}

// Decode parses a tagged tool response.
func Decode(b []byte) (Response, error) {
	var env envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return Response{}, fmt.Errorf("tool envelope: %w: %w", domain.ErrDeserialization, err)
	}

	var (
		p   Payload
		err error
	)
	switch env.Type {
	case TypeProductsSearch:
		p, err = decodeAs[ProductsSearch](env.Data)
	case TypeWeather:
		p, err = decodeAs[Weather](env.Data)
	case TypeParkInformation:
		p, err = decodeAs[ParkInformation](env.Data)
	case TypeOnlineSearch:
		p, err = decodeAs[OnlineSearch](env.Data)
	default:
		return Response{}, fmt.Errorf("unknown tool type %q: %w", env.Type, domain.ErrDeserialization)
	}
	if err != nil {
		return Response{}, fmt.Errorf("tool %s: %w: %w", env.Type, domain.ErrDeserialization, err)
	}

	return Response{Type: env.Type, ToolCallID: env.ToolCallID, Payload: p}, nil
}

func decodeAs[T Payload](data json.RawMessage) (Payload, error) {
	var v T
	if len(data) == 0 || string(data) == "null" {
		return v, nil
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return v, nil
}
