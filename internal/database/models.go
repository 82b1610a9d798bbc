// Package database предоставляет модели данных и репозиторий для работы с PostgreSQL.
// Использует GORM ORM с prepared statements для защиты от SQL injection.
package database

import "time"

// Extraction представляет итог одного извлечения статьи.
// Статусы: success, empty, failed.
type Extraction struct {
	ID         uint      `gorm:"primaryKey"`
	RunID      string    `gorm:"type:varchar(36);uniqueIndex;not null"` // ID прогона
	URL        string    `gorm:"type:text;not null"`                    // Запрошенный URL
	Status     string    `gorm:"type:varchar(16);not null;index"`       // Статус извлечения
	ErrorKind  string    `gorm:"type:varchar(32)"`                      // Вид ошибки (driver_init, page_load, empty)
	Error      string    `gorm:"type:text"`                             // Текст ошибки
	Title      string    `gorm:"type:text"`                             // Заголовок статьи
	BodyLength int       `gorm:"not null;default:0"`                    // Длина текста в байтах
	ImageCount int       `gorm:"not null;default:0"`                    // Сколько изображений найдено
	Attempts   int       `gorm:"not null;default:0"`                    // Сколько раз опрошен оракул
	Clicks     int       `gorm:"not null;default:0"`                    // Сколько попапов закрыто
	FinalState string    `gorm:"type:varchar(16)"`                      // Финальное состояние цикла попапов
	DurationMs int64     `gorm:"not null;default:0"`                    // Длительность в миллисекундах
	CreatedAt  time.Time `gorm:"autoCreateTime;index"`
}

// LlmLog представляет лог запроса к модели.
// Промпт и ответ сохраняются уже очищенными от чувствительных данных.
type LlmLog struct {
	ID           uint      `gorm:"primaryKey"`
	RunID        string    `gorm:"type:varchar(36);index"` // ID прогона (может быть пустым)
	Provider     string    `gorm:"type:varchar(16);not null"`
	Model        string    `gorm:"type:varchar(64)"`   // Модель (gpt-4o-mini)
	PromptText   string    `gorm:"type:text;not null"` // Текст промпта
	ResponseText string    `gorm:"type:text"`          // Текст ответа
	Error        string    `gorm:"type:text"`          // Ошибка запроса
	TokensUsed   int       `gorm:"not null;default:0"` // Количество токенов
	DurationMs   int64     `gorm:"not null;default:0"`
	CreatedAt    time.Time `gorm:"autoCreateTime"`
}
