// Copyright 2026 The casetrace Authors
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

package ratelimit

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ThrottledError signals that a backend asked the caller to slow down.
// RetryAfter, when positive, is the delay the backend advertised.
type ThrottledError struct {
	RetryAfter time.Duration
	Detail     string
	Err        error
}

func (e *ThrottledError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("throttled (retry after %s): %s", e.RetryAfter, e.Detail)
	}
	return fmt.Sprintf("throttled: %s", e.Detail)
}

func (e *ThrottledError) Unwrap() error { return e.Err }

// IsThrottle reports whether err is a throttling signal: either a typed
// *ThrottledError or an error whose text carries an HTTP 429 / too-many-
// requests marker from a backend that doesn't surface structured errors.
func IsThrottle(err error) bool {
	if err == nil {
		return false
	}
	var te *ThrottledError
	if errors.As(err, &te) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "429") ||
		strings.Contains(strings.ToLower(msg), "too many requests")
}

var waitHintPattern = regexp.MustCompile(`try again in ([\d.]+)s`)

// hintMargin pads an advertised retry delay so we don't land exactly on the
// limit boundary.
const hintMargin = 500 * time.Millisecond

// extractWaitHint pulls an advertised retry delay out of a throttling error.
// It prefers a typed RetryAfter, then the textual "try again in <seconds>s"
// pattern; both get the fixed safety margin added. Returns 0 when no hint is
// present.
func extractWaitHint(err error) time.Duration {
	var te *ThrottledError
	if errors.As(err, &te) && te.RetryAfter > 0 {
		return te.RetryAfter + hintMargin
	}

	m := waitHintPattern.FindStringSubmatch(err.Error())
	if len(m) != 2 {
		return 0
	}
	seconds, perr := strconv.ParseFloat(m[1], 64)
	if perr != nil {
		return 0
	}
	return time.Duration(seconds*float64(time.Second)) + hintMargin
}
