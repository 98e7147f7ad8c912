package models

import (
	"time"

	"github.com/portal-admin/internal/types"
	"github.com/shopspring/decimal"
)

// AgentFee is a personalized fee override for an agent or one of its sub-agents
type AgentFee struct {
	ID                int64                 `json:"id" db:"id"`
	AgentID           int64                 `json:"agentId" db:"agent_id"`
	SubAgentID        *int64                `json:"subAgentId,omitempty" db:"sub_agent_id"`
	ApplicationType   types.ApplicationType `json:"applicationType" db:"application_type"`
	FeePerApplication decimal.Decimal       `json:"feePerApplication" db:"fee_per_application"`
	CreatedAt         time.Time             `json:"createdAt" db:"created_at"`
	UpdatedAt         time.Time             `json:"updatedAt" db:"updated_at"`
}

// SettingField is one named value inside a settings module
type SettingField struct {
	Name  string `json:"name" yaml:"name"`
	Type  string `json:"type" yaml:"type"`
	Value string `json:"value" yaml:"value"`
}

// Setting is a named bag of settings fields, e.g. the "fees" module
type Setting struct {
	ID            int64          `json:"id" db:"id"`
	Module        string         `json:"module" db:"module"`
	SettingFields []SettingField `json:"settingFields" db:"setting_fields"`
	CreatedAt     time.Time      `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time      `json:"updatedAt" db:"updated_at"`
}
