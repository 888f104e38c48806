// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"bytes"
	"strings"
	"testing"
)

func TestLogGroupPrefixes(t *testing.T) {
	cfg := NewDefault()
	cfg.LogLevel = int(TraceLevel)
	logger := NewLogGroup(cfg)

	var buf bytes.Buffer
	logger.SetAllOutput(&buf)

	logger.Tracef("t")
	logger.Debugf("d")
	logger.Infof("i")
	logger.Warnf("w")
	logger.Errorf("e")

	out := buf.String()
	for _, prefix := range []string{"[TRACE] ", "[DEBUG] ", "[INFO] ", "[WARN] ", "[ERROR] "} {
		if !strings.Contains(out, prefix) {
			t.Errorf("output is missing the %q prefix:\n%s", prefix, out)
		}
	}
}

func TestLogGroupLevelGating(t *testing.T) {
	cfg := NewDefault()
	cfg.LogLevel = int(WarnLevel)
	logger := NewLogGroup(cfg)

	var buf bytes.Buffer
	logger.SetAllOutput(&buf)

	logger.Infof("quiet")
	logger.Debugf("quiet")
	logger.Warnf("loud")

	out := buf.String()
	if strings.Contains(out, "quiet") {
		t.Errorf("messages below the configured level must be dropped:\n%s", out)
	}
	if !strings.Contains(out, "loud") {
		t.Errorf("warnings must pass at warn level:\n%s", out)
	}
}
