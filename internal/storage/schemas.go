package storage

// Table schemas for the generic repository. Column lists must match the db
// tags of the corresponding model.

var UserSchema = Schema{
	Resource:      "user",
	Table:         "users",
	Columns:       []string{"id", "name", "phone", "email", "role", "status", "balance", "center_name", "center_address", "parent_agent_id", "created_at", "updated_at"},
	SearchColumns: []string{"name", "phone", "email", "center_name"},
	FilterColumns: []string{"role", "status", "parent_agent_id"},
	SortColumns:   []string{"id", "name", "phone", "role", "status", "balance", "created_at", "updated_at"},
	Writable:      []string{"name", "phone", "email", "pin_hash", "role", "status", "center_name", "center_address", "parent_agent_id"},
	DefaultSort:   "created_at",
	HasUpdatedAt:  true,
}

var AgentFeeSchema = Schema{
	Resource:      "agent fee",
	Table:         "agent_fees",
	Columns:       []string{"id", "agent_id", "sub_agent_id", "application_type", "fee_per_application", "created_at", "updated_at"},
	SearchColumns: []string{"application_type"},
	FilterColumns: []string{"agent_id", "sub_agent_id", "application_type"},
	SortColumns:   []string{"id", "application_type", "fee_per_application", "created_at", "updated_at"},
	Writable:      []string{"agent_id", "sub_agent_id", "application_type", "fee_per_application"},
	DefaultSort:   "created_at",
	HasUpdatedAt:  true,
}

var SettingSchema = Schema{
	Resource:      "setting",
	Table:         "settings",
	Columns:       []string{"id", "module", "setting_fields", "created_at", "updated_at"},
	SearchColumns: []string{"module"},
	FilterColumns: []string{"module"},
	SortColumns:   []string{"id", "module", "created_at", "updated_at"},
	Writable:      []string{"module", "setting_fields"},
	DefaultSort:   "created_at",
	HasUpdatedAt:  true,
}

// ApplicationSchema has no writable columns: rows are inserted and finalized
// only through the ledger queries
var ApplicationSchema = Schema{
	Resource:      "application",
	Table:         "applications",
	Columns:       []string{"id", "user_id", "type", "data", "status", "fee_applied", "action_by", "note", "created_at", "updated_at"},
	SearchColumns: []string{"type", "data"},
	FilterColumns: []string{"status", "type", "user_id"},
	SortColumns:   []string{"id", "type", "status", "fee_applied", "created_at", "updated_at"},
	DefaultSort:   "created_at",
	OwnerColumn:   "user_id",
	HasUpdatedAt:  true,
}

var RechargeSchema = Schema{
	Resource:      "recharge request",
	Table:         "recharge_requests",
	Columns:       []string{"id", "user_id", "type", "from_account", "amount", "transaction_id", "status", "action_by", "created_at", "updated_at"},
	SearchColumns: []string{"from_account", "transaction_id"},
	FilterColumns: []string{"status", "type", "user_id"},
	SortColumns:   []string{"id", "amount", "status", "created_at", "updated_at"},
	Writable:      []string{"user_id", "type", "from_account", "amount", "transaction_id"},
	DefaultSort:   "created_at",
	OwnerColumn:   "user_id",
	HasUpdatedAt:  true,
}

var BdrisApplicationSchema = Schema{
	Resource:      "bdris application",
	Table:         "bdris_applications",
	Columns:       []string{"id", "user_id", "application_type", "ubrn", "payload", "response", "created_at"},
	SearchColumns: []string{"application_type", "ubrn"},
	FilterColumns: []string{"application_type", "user_id", "ubrn"},
	SortColumns:   []string{"id", "application_type", "created_at"},
	Writable:      []string{"user_id", "application_type", "ubrn", "payload", "response"},
	DefaultSort:   "created_at",
	OwnerColumn:   "user_id",
}

var BdrisErrorSchema = Schema{
	Resource:      "bdris error",
	Table:         "bdris_application_errors",
	Columns:       []string{"id", "user_id", "application_type", "payload", "error_message", "created_at"},
	SearchColumns: []string{"application_type", "error_message"},
	FilterColumns: []string{"application_type", "user_id"},
	SortColumns:   []string{"id", "application_type", "created_at"},
	Writable:      []string{"user_id", "application_type", "payload", "error_message"},
	DefaultSort:   "created_at",
	OwnerColumn:   "user_id",
}

var BlogPostSchema = Schema{
	Resource:      "blog post",
	Table:         "blog_posts",
	Columns:       []string{"id", "title", "slug", "excerpt", "content", "image_url", "status", "author_id", "created_at", "updated_at"},
	SearchColumns: []string{"title", "slug", "excerpt"},
	FilterColumns: []string{"status", "author_id"},
	SortColumns:   []string{"id", "title", "status", "created_at", "updated_at"},
	Writable:      []string{"title", "slug", "excerpt", "content", "image_url", "status", "author_id"},
	DefaultSort:   "created_at",
	HasUpdatedAt:  true,
}

var CareerSchema = Schema{
	Resource:      "career",
	Table:         "careers",
	Columns:       []string{"id", "title", "location", "job_type", "description", "deadline", "status", "created_at", "updated_at"},
	SearchColumns: []string{"title", "location", "job_type"},
	FilterColumns: []string{"status", "job_type"},
	SortColumns:   []string{"id", "title", "deadline", "status", "created_at", "updated_at"},
	Writable:      []string{"title", "location", "job_type", "description", "deadline", "status"},
	DefaultSort:   "created_at",
	HasUpdatedAt:  true,
}

var ServiceCategorySchema = Schema{
	Resource:      "service category",
	Table:         "service_categories",
	Columns:       []string{"id", "name", "slug", "description", "created_at", "updated_at"},
	SearchColumns: []string{"name", "slug"},
	SortColumns:   []string{"id", "name", "created_at", "updated_at"},
	Writable:      []string{"name", "slug", "description"},
	DefaultSort:   "created_at",
	HasUpdatedAt:  true,
}

var PublicServiceSchema = Schema{
	Resource:      "public service",
	Table:         "public_services",
	Columns:       []string{"id", "category_id", "title", "slug", "description", "link", "status", "created_at", "updated_at"},
	SearchColumns: []string{"title", "slug", "description"},
	FilterColumns: []string{"status", "category_id"},
	SortColumns:   []string{"id", "title", "status", "created_at", "updated_at"},
	Writable:      []string{"category_id", "title", "slug", "description", "link", "status"},
	DefaultSort:   "created_at",
	HasUpdatedAt:  true,
}

var PageSchema = Schema{
	Resource:      "page",
	Table:         "pages",
	Columns:       []string{"id", "title", "slug", "content", "status", "created_at", "updated_at"},
	SearchColumns: []string{"title", "slug"},
	FilterColumns: []string{"status"},
	SortColumns:   []string{"id", "title", "status", "created_at", "updated_at"},
	Writable:      []string{"title", "slug", "content", "status"},
	DefaultSort:   "created_at",
	HasUpdatedAt:  true,
}

var FeedbackSchema = Schema{
	Resource:      "feedback",
	Table:         "feedback",
	Columns:       []string{"id", "name", "email", "phone", "subject", "message", "status", "created_at", "updated_at"},
	SearchColumns: []string{"name", "email", "phone", "subject"},
	FilterColumns: []string{"status"},
	SortColumns:   []string{"id", "name", "status", "created_at", "updated_at"},
	Writable:      []string{"name", "email", "phone", "subject", "message", "status"},
	DefaultSort:   "created_at",
	HasUpdatedAt:  true,
}

var MediaSchema = Schema{
	Resource:      "media",
	Table:         "media",
	Columns:       []string{"id", "file_name", "url", "mime_type", "size_bytes", "alt_text", "uploaded_by", "created_at", "updated_at"},
	SearchColumns: []string{"file_name", "alt_text", "mime_type"},
	FilterColumns: []string{"mime_type", "uploaded_by"},
	SortColumns:   []string{"id", "file_name", "size_bytes", "created_at", "updated_at"},
	Writable:      []string{"file_name", "url", "mime_type", "size_bytes", "alt_text", "uploaded_by"},
	DefaultSort:   "created_at",
	HasUpdatedAt:  true,
}
