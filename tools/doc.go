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

/*
Package tools provides the process-wide catalog of structured functions
the model may invoke, together with the authorization and validation
pipeline that guards every invocation.

# Execution Pipeline

Execute runs each call through a strict short-circuiting order:

 1. Unknown tool id
 2. Guest block (guests never execute tools, whatever the risk level)
 3. Role membership
 4. Tier rank (callers below a tool's required tier get an upgrade hint)
 5. Parameter validation (required, type, enum, min/max, maxLength, pattern)
 6. Timed execution with error and panic capture

Nothing executes before validation passes, and no tool failure ever
propagates out of the registry: every outcome is a Result.

# Concurrency

The tool map is populated at startup and treated as immutable during
steady state. The execution counters are atomic and the recent-execution
history is mutex-guarded, so Execute is safe from any goroutine.
*/
package tools
