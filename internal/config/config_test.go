// Copyright (c) 2024 The neighsnoopd Authors.
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

package config

import "testing"

func TestParseRequiredPositionalAndFlags(t *testing.T) {
	c, err := Parse([]string{"-4", "-c", "5", "-f", "^br-.*", "br0"})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if c.IfnameMon != "br0" {
		t.Errorf("IfnameMon = %q, want br0", c.IfnameMon)
	}
	if !c.OnlyIPv4 {
		t.Error("OnlyIPv4 = false, want true")
	}
	if c.Count == nil || *c.Count != 5 {
		t.Errorf("Count = %v, want 5", c.Count)
	}
	if c.DenyFilter == nil {
		t.Fatal("DenyFilter not compiled")
	}
}

func TestIgnoreLinkMatchesDenyFilterOnce(t *testing.T) {
	c, err := Parse([]string{"-f", "^br-.*", "mon0"})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !c.IgnoreLink("br-foo") {
		t.Error("expected br-foo to match the deny filter")
	}
	if c.IgnoreLink("eth0") {
		t.Error("eth0 should not match the deny filter")
	}
	// Calling again for the same name must not panic or change behaviour.
	if !c.IgnoreLink("br-foo") {
		t.Error("expected br-foo to still match on a second call")
	}
}

func TestVerbosityCountsRepeatedFlag(t *testing.T) {
	c, err := Parse([]string{"-v", "-v", "mon0"})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if c.Verbosity != 2 {
		t.Errorf("Verbosity = %d, want 2", c.Verbosity)
	}
}
