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

// Package relay streams model output to clients over websockets.
//
// Each connection is authenticated with a bearer token before the
// upgrade and then runs turns one at a time: a turn checks quota,
// redacts the prompt, selects a model by tier and forwards deltas from
// the upstream provider in emission order. Terminal events are done,
// error or cancelled; after any of them the connection is ready for
// the next turn. A request arriving while a turn is streaming is
// rejected with an error event rather than queued, so deltas from two
// turns can never interleave on one socket.
package relay
