// Copyright 2025 Docdex Authors
//
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


// Package health aggregates dependency probes into one service report.
//
// The probes are small consumer-defined interfaces so anything that can
// ping a store, report index stats, or embed a string can participate.
// Probes run concurrently and a panic in one is contained and reported
// as an unhealthy subsystem.
package health
