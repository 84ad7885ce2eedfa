// Copyright 2026 The Glint Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package glint

import (
	"fmt"

	"github.com/nakama-labs/glint/glinterr"
)

func errFeatureImplication(have, need string) error {
	return glinterr.Wrap(glinterr.ErrIllegalArgument,
		fmt.Sprintf("feature %s requires %s", have, need), nil)
}

func errMaskOnlyZeroDocs(t ColumnType) error {
	return glinterr.Wrap(glinterr.ErrIndex,
		fmt.Sprintf("column type %s cannot have zero docs_count", t), nil)
}

func errLiveExceedsTotal(name string, live, total uint64) error {
	return glinterr.Wrap(glinterr.ErrIndex,
		fmt.Sprintf("segment %s: live_docs_count %d exceeds docs_count %d", name, live, total), nil)
}
