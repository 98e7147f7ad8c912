package service

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/portal-admin/internal/types"
)

// Content inputs carry pointer fields: a nil field is left untouched on
// update. Required lists the columns a create must provide.

type BlogPostInput struct {
	Title    *string `json:"title" validate:"omitempty,min=1,max=255"`
	Slug     *string `json:"slug" validate:"omitempty,min=1,max=255"`
	Excerpt  *string `json:"excerpt"`
	Content  *string `json:"content" validate:"omitempty,min=1"`
	ImageURL *string `json:"imageUrl" validate:"omitempty,url"`
	Status   *string `json:"status" validate:"omitempty,oneof=draft published"`
	AuthorID *int64  `json:"authorId" validate:"omitempty,gt=0"`
}

func (in *BlogPostInput) Required() []string { return []string{"title", "slug", "content"} }

func (in *BlogPostInput) Values() map[string]any {
	v := map[string]any{}
	put(v, "title", in.Title)
	put(v, "slug", slugPtr(in.Slug))
	put(v, "excerpt", in.Excerpt)
	put(v, "content", in.Content)
	put(v, "image_url", in.ImageURL)
	put(v, "status", in.Status)
	put(v, "author_id", in.AuthorID)
	return v
}

type CareerInput struct {
	Title       *string    `json:"title" validate:"omitempty,min=1,max=255"`
	Location    *string    `json:"location" validate:"omitempty,max=255"`
	JobType     *string    `json:"jobType" validate:"omitempty,max=64"`
	Description *string    `json:"description" validate:"omitempty,min=1"`
	Deadline    *time.Time `json:"deadline"`
	Status      *string    `json:"status" validate:"omitempty,oneof=open closed"`
}

func (in *CareerInput) Required() []string { return []string{"title", "description"} }

func (in *CareerInput) Values() map[string]any {
	v := map[string]any{}
	put(v, "title", in.Title)
	put(v, "location", in.Location)
	put(v, "job_type", in.JobType)
	put(v, "description", in.Description)
	put(v, "deadline", in.Deadline)
	put(v, "status", in.Status)
	return v
}

type ServiceCategoryInput struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=255"`
	Slug        *string `json:"slug" validate:"omitempty,min=1,max=255"`
	Description *string `json:"description"`
}

func (in *ServiceCategoryInput) Required() []string { return []string{"name", "slug"} }

func (in *ServiceCategoryInput) Values() map[string]any {
	v := map[string]any{}
	put(v, "name", in.Name)
	put(v, "slug", slugPtr(in.Slug))
	put(v, "description", in.Description)
	return v
}

type PublicServiceInput struct {
	CategoryID  *int64  `json:"categoryId" validate:"omitempty,gt=0"`
	Title       *string `json:"title" validate:"omitempty,min=1,max=255"`
	Slug        *string `json:"slug" validate:"omitempty,min=1,max=255"`
	Description *string `json:"description"`
	Link        *string `json:"link" validate:"omitempty,url"`
	Status      *string `json:"status" validate:"omitempty,oneof=active inactive"`
}

func (in *PublicServiceInput) Required() []string { return []string{"title", "slug"} }

func (in *PublicServiceInput) Values() map[string]any {
	v := map[string]any{}
	put(v, "category_id", in.CategoryID)
	put(v, "title", in.Title)
	put(v, "slug", slugPtr(in.Slug))
	put(v, "description", in.Description)
	put(v, "link", in.Link)
	put(v, "status", in.Status)
	return v
}

type PageInput struct {
	Title   *string `json:"title" validate:"omitempty,min=1,max=255"`
	Slug    *string `json:"slug" validate:"omitempty,min=1,max=255"`
	Content *string `json:"content" validate:"omitempty,min=1"`
	Status  *string `json:"status" validate:"omitempty,oneof=draft published"`
}

func (in *PageInput) Required() []string { return []string{"title", "slug", "content"} }

func (in *PageInput) Values() map[string]any {
	v := map[string]any{}
	put(v, "title", in.Title)
	put(v, "slug", slugPtr(in.Slug))
	put(v, "content", in.Content)
	put(v, "status", in.Status)
	return v
}

type FeedbackInput struct {
	Name    *string `json:"name" validate:"omitempty,min=1,max=255"`
	Email   *string `json:"email" validate:"omitempty,email"`
	Phone   *string `json:"phone" validate:"omitempty,max=32"`
	Subject *string `json:"subject" validate:"omitempty,max=255"`
	Message *string `json:"message" validate:"omitempty,min=1"`
	Status  *string `json:"status" validate:"omitempty,oneof=new read resolved"`
}

func (in *FeedbackInput) Required() []string { return []string{"name", "message"} }

func (in *FeedbackInput) Values() map[string]any {
	v := map[string]any{}
	put(v, "name", in.Name)
	put(v, "email", in.Email)
	put(v, "phone", in.Phone)
	put(v, "subject", in.Subject)
	put(v, "message", in.Message)
	put(v, "status", in.Status)
	return v
}

// MediaInput registers upload metadata; the file itself lives elsewhere
type MediaInput struct {
	FileName   *string `json:"fileName" validate:"omitempty,min=1,max=255"`
	URL        *string `json:"url" validate:"omitempty,url"`
	MimeType   *string `json:"mimeType" validate:"omitempty,max=128"`
	SizeBytes  *int64  `json:"sizeBytes" validate:"omitempty,gte=0"`
	AltText    *string `json:"altText" validate:"omitempty,max=255"`
	UploadedBy *int64  `json:"uploadedBy" validate:"omitempty,gt=0"`
}

func (in *MediaInput) Required() []string { return []string{"file_name", "url"} }

func (in *MediaInput) Values() map[string]any {
	v := map[string]any{}
	put(v, "file_name", in.FileName)
	put(v, "url", in.URL)
	put(v, "mime_type", in.MimeType)
	put(v, "size_bytes", in.SizeBytes)
	put(v, "alt_text", in.AltText)
	put(v, "uploaded_by", in.UploadedBy)
	return v
}

// AgentFeeInput sets a personalized fee. With SubAgentID set the fee applies
// to that sub-agent of the agent.
type AgentFeeInput struct {
	AgentID           *int64           `json:"agentId" validate:"omitempty,gt=0"`
	SubAgentID        *int64           `json:"subAgentId" validate:"omitempty,gt=0"`
	ApplicationType   *string          `json:"applicationType" validate:"omitempty,apptype"`
	FeePerApplication *decimal.Decimal `json:"feePerApplication" validate:"omitempty,gte=0"`
}

func (in *AgentFeeInput) Required() []string {
	return []string{"agent_id", "application_type", "fee_per_application"}
}

func (in *AgentFeeInput) Values() map[string]any {
	v := map[string]any{}
	put(v, "agent_id", in.AgentID)
	put(v, "sub_agent_id", in.SubAgentID)
	if in.ApplicationType != nil {
		t, _ := types.ParseApplicationType(*in.ApplicationType)
		v["application_type"] = string(t)
	}
	put(v, "fee_per_application", in.FeePerApplication)
	return v
}

// put stores *p under col when p is set
func put[P any](values map[string]any, col string, p *P) {
	if p != nil {
		values[col] = *p
	}
}

func slugPtr(s *string) *string {
	if s == nil {
		return nil
	}
	slug := strings.ToLower(strings.TrimSpace(*s))
	slug = strings.Join(strings.Fields(slug), "-")
	return &slug
}

// missingRequired reports required columns absent from values, keyed by the
// JSON field name
func missingRequired(required []string, values map[string]any) map[string]string {
	missing := map[string]string{}
	for _, col := range required {
		if _, ok := values[col]; !ok {
			missing[jsonName(col)] = "is required"
		}
	}
	return missing
}

// jsonName converts a column name to the camelCase used in request bodies
func jsonName(col string) string {
	parts := strings.Split(col, "_")
	for i := 1; i < len(parts); i++ {
		if parts[i] != "" {
			parts[i] = strings.ToUpper(parts[i][:1]) + parts[i][1:]
		}
	}
	return strings.Join(parts, "")
}
