// Package protocol defines the JSON messages exchanged over the duplex
// channel. Every message is an object with a "type" discriminator.
package protocol

import (
	"errors"
	"fmt"

	"github.com/bytedance/sonic"

	"github.com/vk/tensorscope/internal/model"
)

// ErrMalformed is returned for payloads that are not valid server messages.
var ErrMalformed = errors.New("malformed message")

// Message type discriminators.
const (
	TypeSubscribe     = "subscribe"
	TypeUnsubscribe   = "unsubscribe"
	TypeUpdateParam   = "update_param"
	TypeTensorUpdate  = "tensor_update"
	TypeTensorsUpdate = "tensors_update"
	TypeGraphUpdate   = "graph_update"
	TypeError         = "error"
)

var codec = sonic.ConfigStd

// ClientMessage is a message the client sends to the server.
type ClientMessage interface {
	Type() string
}

// Subscribe asks the server to push updates for one tensor.
type Subscribe struct {
	TensorID string
	View     string
}

// Unsubscribe stops updates for one tensor.
type Unsubscribe struct {
	TensorID string
}

// UpdateParam changes one parameter of a scenario; the server re-runs it.
type UpdateParam struct {
	ScenarioID string
	Param      string
	Value      any
}

func (Subscribe) Type() string   { return TypeSubscribe }
func (Unsubscribe) Type() string { return TypeUnsubscribe }
func (UpdateParam) Type() string { return TypeUpdateParam }

type subscribeWire struct {
	Type     string `json:"type"`
	TensorID string `json:"tensor_id"`
	View     string `json:"view,omitempty"`
}

type unsubscribeWire struct {
	Type     string `json:"type"`
	TensorID string `json:"tensor_id"`
}

type updateParamWire struct {
	Type       string `json:"type"`
	ScenarioID string `json:"scenario_id"`
	Param      string `json:"param"`
	Value      any    `json:"value"`
}

// Encode serializes a client message.
func Encode(msg ClientMessage) ([]byte, error) {
	var wire any
	switch m := msg.(type) {
	case Subscribe:
		wire = subscribeWire{Type: TypeSubscribe, TensorID: m.TensorID, View: m.View}
	case *Subscribe:
		wire = subscribeWire{Type: TypeSubscribe, TensorID: m.TensorID, View: m.View}
	case Unsubscribe:
		wire = unsubscribeWire{Type: TypeUnsubscribe, TensorID: m.TensorID}
	case *Unsubscribe:
		wire = unsubscribeWire{Type: TypeUnsubscribe, TensorID: m.TensorID}
	case UpdateParam:
		wire = updateParamWire{Type: TypeUpdateParam, ScenarioID: m.ScenarioID, Param: m.Param, Value: m.Value}
	case *UpdateParam:
		wire = updateParamWire{Type: TypeUpdateParam, ScenarioID: m.ScenarioID, Param: m.Param, Value: m.Value}
	default:
		return nil, fmt.Errorf("cannot encode client message %T", msg)
	}
	data, err := codec.Marshal(wire)
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", msg.Type(), err)
	}
	return data, nil
}

// ServerMessage is one of TensorUpdate, TensorsUpdate, GraphUpdate or
// ErrorMessage. The set is closed.
type ServerMessage interface {
	serverMessage()
}

// TensorUpdate carries a fresh summary for one tensor.
type TensorUpdate struct {
	TensorID string
	Summary  model.TensorSummary
}

// TensorsUpdate carries the complete tensor set after a re-run.
type TensorsUpdate struct {
	Tensors map[string]model.TensorSummary
}

// GraphUpdate replaces the operator graph.
type GraphUpdate struct {
	Graph model.Graph
}

// ErrorMessage is an application-level error reported by the server.
type ErrorMessage struct {
	Message string
}

func (TensorUpdate) serverMessage()  {}
func (TensorsUpdate) serverMessage() {}
func (GraphUpdate) serverMessage()   {}
func (ErrorMessage) serverMessage()  {}

// envelope is the union of all server fields; pointers mark presence.
type envelope struct {
	Type     string                          `json:"type"`
	TensorID string                          `json:"tensor_id"`
	Summary  *model.TensorSummary            `json:"summary"`
	Tensors  *map[string]model.TensorSummary `json:"tensors"`
	Nodes    *[]model.GraphNode              `json:"nodes"`
	Edges    []model.GraphEdge               `json:"edges"`
	Message  *string                         `json:"message"`
}

// Decode parses a server message. All failures wrap ErrMalformed.
func Decode(data []byte) (ServerMessage, error) {
	var env envelope
	if err := codec.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	switch env.Type {
	case TypeTensorUpdate:
		if env.TensorID == "" {
			return nil, missing(env.Type, "tensor_id")
		}
		if env.Summary == nil {
			return nil, missing(env.Type, "summary")
		}
		return TensorUpdate{TensorID: env.TensorID, Summary: *env.Summary}, nil
	case TypeTensorsUpdate:
		if env.Tensors == nil {
			return nil, missing(env.Type, "tensors")
		}
		tensors := *env.Tensors
		if tensors == nil {
			tensors = map[string]model.TensorSummary{}
		}
		return TensorsUpdate{Tensors: tensors}, nil
	case TypeGraphUpdate:
		if env.Nodes == nil {
			return nil, missing(env.Type, "nodes")
		}
		return GraphUpdate{Graph: model.Graph{Nodes: *env.Nodes, Edges: env.Edges}}, nil
	case TypeError:
		if env.Message == nil {
			return nil, missing(env.Type, "message")
		}
		return ErrorMessage{Message: *env.Message}, nil
	case "":
		return nil, fmt.Errorf("%w: missing type", ErrMalformed)
	default:
		return nil, fmt.Errorf("%w: unknown type %q", ErrMalformed, env.Type)
	}
}

func missing(typ, field string) error {
	return fmt.Errorf("%w: %s without %s", ErrMalformed, typ, field)
}
