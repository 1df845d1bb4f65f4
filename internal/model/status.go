package model

import "time"

// StatusTTL — время жизни статуса с момента публикации. По истечении статус
// исключается из всех выборок и вычищается при следующей загрузке.
const StatusTTL = 24 * time.Hour

// Status — эфемерный пост ("история"). Либо Content, либо Image обязателен.
type Status struct {
	ID        string    `json:"id"`
	User      string    `json:"user"`
	Avatar    string    `json:"avatar,omitempty"`
	IsViewed  bool      `json:"is_viewed"`
	Timestamp time.Time `json:"timestamp"`
	Content   string    `json:"content,omitempty"`
	Image     string    `json:"image,omitempty"`
}

// Expired сообщает, истёк ли статус к моменту now.
func (s Status) Expired(now time.Time) bool {
	return now.Sub(s.Timestamp) >= StatusTTL
}

// StatusViewer — запись журнала просмотров: не более одной на viewer id,
// порядок — порядок первых просмотров. len(журнала) — это "просмотрели N".
type StatusViewer struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Avatar   string    `json:"avatar,omitempty"`
	ViewedAt time.Time `json:"viewed_at"`
}
