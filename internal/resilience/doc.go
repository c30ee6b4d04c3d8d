// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package resilience groups the retry and circuit-breaker helpers that guard
// calls to the language-model APIs.
package resilience
