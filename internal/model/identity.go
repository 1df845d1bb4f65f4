package model

// Identity — текущий актор для атрибуции реакций, просмотров и избранного.
// Поставляется провайдером идентичности (middleware), движок его не проверяет.
type Identity struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar,omitempty"`
}
