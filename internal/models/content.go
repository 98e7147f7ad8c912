package models

import "time"

type BlogPost struct {
	ID        int64     `json:"id" db:"id"`
	Title     string    `json:"title" db:"title"`
	Slug      string    `json:"slug" db:"slug"`
	Excerpt   string    `json:"excerpt" db:"excerpt"`
	Content   string    `json:"content" db:"content"`
	ImageURL  string    `json:"imageUrl" db:"image_url"`
	Status    string    `json:"status" db:"status"`
	AuthorID  *int64    `json:"authorId,omitempty" db:"author_id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

type Career struct {
	ID          int64      `json:"id" db:"id"`
	Title       string     `json:"title" db:"title"`
	Location    string     `json:"location" db:"location"`
	JobType     string     `json:"jobType" db:"job_type"`
	Description string     `json:"description" db:"description"`
	Deadline    *time.Time `json:"deadline,omitempty" db:"deadline"`
	Status      string     `json:"status" db:"status"`
	CreatedAt   time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time  `json:"updatedAt" db:"updated_at"`
}

type ServiceCategory struct {
	ID          int64     `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Slug        string    `json:"slug" db:"slug"`
	Description string    `json:"description" db:"description"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`
}

type PublicService struct {
	ID          int64     `json:"id" db:"id"`
	CategoryID  *int64    `json:"categoryId,omitempty" db:"category_id"`
	Title       string    `json:"title" db:"title"`
	Slug        string    `json:"slug" db:"slug"`
	Description string    `json:"description" db:"description"`
	Link        string    `json:"link" db:"link"`
	Status      string    `json:"status" db:"status"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`
}

type Page struct {
	ID        int64     `json:"id" db:"id"`
	Title     string    `json:"title" db:"title"`
	Slug      string    `json:"slug" db:"slug"`
	Content   string    `json:"content" db:"content"`
	Status    string    `json:"status" db:"status"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

type Feedback struct {
	ID        int64     `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Email     string    `json:"email" db:"email"`
	Phone     string    `json:"phone" db:"phone"`
	Subject   string    `json:"subject" db:"subject"`
	Message   string    `json:"message" db:"message"`
	Status    string    `json:"status" db:"status"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// Media is upload metadata; the bytes live in external object storage
type Media struct {
	ID         int64     `json:"id" db:"id"`
	FileName   string    `json:"fileName" db:"file_name"`
	URL        string    `json:"url" db:"url"`
	MimeType   string    `json:"mimeType" db:"mime_type"`
	SizeBytes  int64     `json:"sizeBytes" db:"size_bytes"`
	AltText    string    `json:"altText" db:"alt_text"`
	UploadedBy *int64    `json:"uploadedBy,omitempty" db:"uploaded_by"`
	CreatedAt  time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt  time.Time `json:"updatedAt" db:"updated_at"`
}
