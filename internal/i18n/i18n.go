// Package i18n — поиск строк интерфейса по ключу. Используется только для
// текстов, видимых пользователю (уведомления и т.п.), никогда для логики.
package i18n

var messages = map[string]string{
	"push.new_message":   "Новое сообщение",
	"push.voice_message": "Голосовое сообщение",
	"push.image_message": "Фото",
}

// T возвращает строку по ключу; неизвестный ключ возвращается как есть,
// чтобы пропуск перевода был виден, но не ломал интерфейс.
func T(key string) string {
	if s, ok := messages[key]; ok {
		return s
	}
	return key
}
