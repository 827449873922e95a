// Copyright 2025 BrightClass
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package relay

// Outbound event types. Every turn emits start, zero or more deltas,
// then exactly one terminal event.
const (
	EventStart     = "start"
	EventDelta     = "delta"
	EventDone      = "done"
	EventError     = "error"
	EventCancelled = "cancelled"
)

// messageTypeCancel marks an inbound control message that aborts the
// active turn instead of starting a new one.
const messageTypeCancel = "cancel"

// Event is one outbound relay-native message.
type Event struct {
	Type    string `json:"type"`
	Text    string `json:"text,omitempty"`
	Message string `json:"message,omitempty"`
}

// inboundMessage is the client wire format. A request carries scope,
// service_type and a payload; a cancel carries only type.
type inboundMessage struct {
	Type        string         `json:"type,omitempty"`
	Scope       string         `json:"scope,omitempty"`
	ServiceType string         `json:"service_type,omitempty"`
	Payload     inboundPayload `json:"payload,omitempty"`
}

type inboundPayload struct {
	Prompt  string                 `json:"prompt,omitempty"`
	Context map[string]interface{} `json:"context,omitempty"`
}
