// Copyright 2026 The Pepper Authors
// SPDX-License-Identifier: Apache-2.0

// Package judgerpc defines the JSON messages exchanged over the judge
// data channel. Requests carry a type tag and a correlation id under
// the "_msgId" key; responses echo the id and either a typed payload
// or an "error" string. The one exception is the language push the
// judge sends when a channel opens, which has no id.
//
// The types here are shared by the browser-side client (judgeclient)
// and the judge daemon (judge), so the two ends cannot drift.
package judgerpc
