package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Topic identifies which part of the plain summary an extraction feeds.
type Topic string

const (
	TopicOverview      Topic = "overview"
	TopicUsers         Topic = "target_users"
	TopicFeatures      Topic = "key_features"
	TopicWorkflows     Topic = "user_flows"
	TopicRules         Topic = "business_rules"
	TopicIntegrations  Topic = "integrations"
	TopicData          Topic = "data_entities"
	TopicNonFunctional Topic = "non_functional"
	TopicScope         Topic = "mvp_scope"
)

// Topics lists every topic an extraction may carry, in summary order.
var Topics = []Topic{
	TopicOverview, TopicUsers, TopicFeatures, TopicWorkflows, TopicRules,
	TopicIntegrations, TopicData, TopicNonFunctional, TopicScope,
}

// Payload is the typed data of one extraction. The set of implementations
// is closed: one per Topic.
type Payload interface {
	topic() Topic
}

// OverviewData replaces the one-paragraph description of the idea.
type OverviewData struct {
	Text string `json:"text"`
}

// UsersData adds user groups.
type UsersData struct {
	Users []string `json:"users"`
}

// FeaturesData adds business features.
type FeaturesData struct {
	Features []string `json:"features"`
}

// WorkflowsData adds user flows.
type WorkflowsData struct {
	Flows []string `json:"flows"`
}

// RulesData adds business rules and constraints.
type RulesData struct {
	Rules []string `json:"rules"`
}

// IntegrationData adds one external system.
type IntegrationData struct {
	Name    string `json:"name"`
	Purpose string `json:"purpose,omitempty"`
}

// DataEntitiesData adds things the product stores.
type DataEntitiesData struct {
	Entities []string `json:"entities"`
}

// NonFunctionalData adds quality notes (speed, security, availability...).
type NonFunctionalData struct {
	Notes []string `json:"notes"`
}

// ScopeData moves items in or out of the first release.
type ScopeData struct {
	In  []string `json:"in,omitempty"`
	Out []string `json:"out,omitempty"`
}

func (OverviewData) topic() Topic      { return TopicOverview }
func (UsersData) topic() Topic         { return TopicUsers }
func (FeaturesData) topic() Topic      { return TopicFeatures }
func (WorkflowsData) topic() Topic     { return TopicWorkflows }
func (RulesData) topic() Topic         { return TopicRules }
func (IntegrationData) topic() Topic   { return TopicIntegrations }
func (DataEntitiesData) topic() Topic  { return TopicData }
func (NonFunctionalData) topic() Topic { return TopicNonFunctional }
func (ScopeData) topic() Topic         { return TopicScope }

// Extracted is one topic's worth of facts pulled out of a conversation turn.
type Extracted struct {
	Topic      Topic   `json:"topic"`
	Data       Payload `json:"data"`
	Confidence float64 `json:"confidence"`
}

// NewExtracted builds an Extracted whose Topic matches its payload.
func NewExtracted(data Payload, confidence float64) Extracted {
	if data == nil {
		return Extracted{Confidence: confidence}
	}
	return Extracted{Topic: data.topic(), Data: data, Confidence: confidence}
}

// ErrUnknownTopic is returned when an extraction names a topic outside Topics.
var ErrUnknownTopic = errors.New("unknown extraction topic")

// decoders holds one entry per Topic.
var decoders = map[Topic]func(json.RawMessage) (Payload, error){
	TopicOverview:      decode[OverviewData],
	TopicUsers:         decode[UsersData],
	TopicFeatures:      decode[FeaturesData],
	TopicWorkflows:     decode[WorkflowsData],
	TopicRules:         decode[RulesData],
	TopicIntegrations:  decode[IntegrationData],
	TopicData:          decode[DataEntitiesData],
	TopicNonFunctional: decode[NonFunctionalData],
	TopicScope:         decode[ScopeData],
}

func decode[T Payload](data json.RawMessage) (Payload, error) {
	var v T
	if len(data) > 0 && string(data) != "null" {
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, err
		}
	}
	return v, nil
}

// UnmarshalJSON decodes data according to topic.
func (e *Extracted) UnmarshalJSON(b []byte) error {
	var raw struct {
		Topic      Topic           `json:"topic"`
		Data       json.RawMessage `json:"data"`
		Confidence float64         `json:"confidence"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	dec, ok := decoders[raw.Topic]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownTopic, raw.Topic)
	}
	p, err := dec(raw.Data)
	if err != nil {
		return fmt.Errorf("decoding %s data: %w", raw.Topic, err)
	}

	e.Topic = raw.Topic
	e.Data = p
	e.Confidence = raw.Confidence
	return nil
}

var fencedJSON = regexp.MustCompile("(?s)```json\\s*(.*?)```")

// ParseExtractions reads every fenced json block in text. A block holds a
// single extraction object or an array of them. Blocks that fail to decode
// are skipped and reported in the returned error; the valid ones are still
// returned.
func ParseExtractions(text string) ([]Extracted, error) {
	var (
		out  []Extracted
		errs []error
	)
	for _, m := range fencedJSON.FindAllStringSubmatch(text, -1) {
		body := strings.TrimSpace(m[1])
		if body == "" {
			continue
		}
		if strings.HasPrefix(body, "[") {
			var batch []json.RawMessage
			if err := json.Unmarshal([]byte(body), &batch); err != nil {
				errs = append(errs, err)
				continue
			}
			for _, item := range batch {
				var ex Extracted
				if err := json.Unmarshal(item, &ex); err != nil {
					errs = append(errs, err)
					continue
				}
				out = append(out, ex)
			}
			continue
		}
		var ex Extracted
		if err := json.Unmarshal([]byte(body), &ex); err != nil {
			errs = append(errs, err)
			continue
		}
		out = append(out, ex)
	}
	return out, errors.Join(errs...)
}

// StripExtractions removes fenced json blocks so the remaining text can be
// shown to the user.
func StripExtractions(text string) string {
	return strings.TrimSpace(fencedJSON.ReplaceAllString(text, ""))
}
