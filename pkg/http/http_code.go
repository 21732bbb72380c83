// Copyright 2025 Arcade Team
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

package http

var (
	Success = Response{Code: 200, Msg: "Request Success"}

	Failed        = Response{Code: 500, Msg: "Request failed"}
	BadRequest    = Response{Code: 4000, Msg: "Bad request"}
	NotFound      = Response{Code: 4004, Msg: "Not found"}
	Conflict      = Response{Code: 4009, Msg: "Conflict"}
	InternalError = Response{Code: 5000, Msg: "Internal error, please contact the administrator"}
	ShardFailed   = Response{Code: 5020, Msg: "One or more shards failed to apply the change"}
)
