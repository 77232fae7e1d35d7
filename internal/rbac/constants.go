// Copyright 2026 The TrainCore Authors
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

package rbac

// Role identifies the privilege tier of a principal.
// Ordering: Member < Manager < TenantAdmin < GlobalAdmin.
type Role string

const (
	RoleMember      Role = "member"
	RoleManager     Role = "manager"
	RoleTenantAdmin Role = "tenant_admin"
	RoleGlobalAdmin Role = "global_admin"
)

// privilege maps each role to its rank in the hierarchy.
var privilege = map[Role]int{
	RoleMember:      0,
	RoleManager:     1,
	RoleTenantAdmin: 2,
	RoleGlobalAdmin: 3,
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	_, ok := privilege[r]
	return ok
}

// AtLeast reports whether r carries at least the privilege of other.
func (r Role) AtLeast(other Role) bool {
	return privilege[r] >= privilege[other]
}

// CanAdminister reports whether r may manage principals holding the target
// role. Managers administer members; tenant admins administer managers and
// members; global admins administer everyone.
func (r Role) CanAdminister(target Role) bool {
	if r == RoleGlobalAdmin {
		return true
	}
	return privilege[r] >= privilege[RoleManager] && privilege[r] > privilege[target]
}
