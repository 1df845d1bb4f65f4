package repository

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rentwork/internal/kvstore"
	"github.com/rentwork/internal/logger"
	"github.com/rentwork/internal/model"
)

const (
	statusesKey      = "user-statuses"
	viewedKey        = "viewed-statuses"
	viewersKeyPrefix = "status-viewers-"
)

// StatusRepository — эфемерные статусы (24 часа) с журналом просмотров.
// Состояния: Active → Expired; других переходов нет, пользовательского
// удаления не существует.
type StatusRepository struct {
	store kvstore.Store
	// now подменяется в тестах для проверки истечения.
	now func() time.Time
}

func NewStatusRepository(store kvstore.Store) *StatusRepository {
	return &StatusRepository{store: store, now: time.Now}
}

// Load возвращает активные статусы (новые — первыми) и id вычищенных.
// Перед возвратом выполняется compactExpired: если истёкшие найдены,
// урезанный список пишется обратно и их служебные записи удаляются
// (само-восстанавливающая компакция при чтении).
func (r *StatusRepository) Load(ctx context.Context) (statuses []model.Status, droppedIDs []string) {
	defer logger.DeferLogDuration("statusRepo.Load", time.Now())()
	stored := kvstore.Read(ctx, r.store, statusesKey, []model.Status{})
	kept, dropped := compactExpired(stored, r.now().UTC())
	if len(dropped) > 0 {
		if !kvstore.Write(ctx, r.store, statusesKey, kept) {
			logger.Warnf("statusRepo.Load: компакция не записана, истёкшие вычистятся при следующей загрузке")
			return kept, nil
		}
		r.pruneViewState(ctx, dropped)
		for _, s := range dropped {
			droppedIDs = append(droppedIDs, s.ID)
		}
		logger.Infof("statusRepo.Load: вычищено истёкших статусов: %d", len(dropped))
	}
	return kept, droppedIDs
}

// compactExpired отделяет активные статусы от истёкших (возраст ≥ 24h).
// Явный именованный шаг: поведение проверяется тестами отдельно от Load.
func compactExpired(statuses []model.Status, now time.Time) (kept, dropped []model.Status) {
	kept = make([]model.Status, 0, len(statuses))
	for _, s := range statuses {
		if s.Expired(now) {
			dropped = append(dropped, s)
		} else {
			kept = append(kept, s)
		}
	}
	return kept, dropped
}

// pruneViewState удаляет флаги просмотра и журналы зрителей истёкших статусов.
func (r *StatusRepository) pruneViewState(ctx context.Context, dropped []model.Status) {
	viewed := kvstore.Read(ctx, r.store, viewedKey, map[string]bool{})
	changed := false
	for _, s := range dropped {
		if _, ok := viewed[s.ID]; ok {
			delete(viewed, s.ID)
			changed = true
		}
		kvstore.Remove(ctx, r.store, viewersKeyPrefix+s.ID)
	}
	if changed {
		kvstore.Write(ctx, r.store, viewedKey, viewed)
	}
}

// Create публикует статус от имени author. Статус без текста и без картинки
// отклоняется до любой записи. Новый статус встаёт в голову списка.
func (r *StatusRepository) Create(ctx context.Context, author model.Identity, content, image string) (st model.Status, persisted bool, err error) {
	defer logger.DeferLogDuration("statusRepo.Create", time.Now())()
	content = strings.TrimSpace(content)
	if content == "" && image == "" {
		return model.Status{}, false, ErrInvalidInput
	}
	st = model.Status{
		ID:        uuid.New().String(),
		User:      author.Name,
		Avatar:    author.Avatar,
		Timestamp: r.now().UTC(),
		Content:   content,
		Image:     image,
	}
	statuses := kvstore.Read(ctx, r.store, statusesKey, []model.Status{})
	statuses = append([]model.Status{st}, statuses...)
	return st, kvstore.Write(ctx, r.store, statusesKey, statuses), nil
}

// View отмечает статус просмотренным этим зрителем. Идемпотентна: флаг
// isViewed выставляется повторно без эффекта, а запись в журнал зрителей
// добавляется не более одного раза на viewer id (проверка членства, не
// структура-множество).
func (r *StatusRepository) View(ctx context.Context, statusID string, viewer model.Identity) (persisted bool, err error) {
	defer logger.DeferLogDuration("statusRepo.View", time.Now())()
	statuses := kvstore.Read(ctx, r.store, statusesKey, []model.Status{})
	idx := -1
	for i := range statuses {
		if statuses[i].ID == statusID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false, ErrNotFound
	}

	persisted = true
	if !statuses[idx].IsViewed {
		statuses[idx].IsViewed = true
		persisted = kvstore.Write(ctx, r.store, statusesKey, statuses) && persisted
	}

	viewed := kvstore.Read(ctx, r.store, viewedKey, map[string]bool{})
	if !viewed[statusID] {
		viewed[statusID] = true
		persisted = kvstore.Write(ctx, r.store, viewedKey, viewed) && persisted
	}

	viewersKey := viewersKeyPrefix + statusID
	viewers := kvstore.Read(ctx, r.store, viewersKey, []model.StatusViewer{})
	for _, v := range viewers {
		if v.ID == viewer.ID {
			return persisted, nil
		}
	}
	viewers = append(viewers, model.StatusViewer{
		ID:       viewer.ID,
		Name:     viewer.Name,
		Avatar:   viewer.Avatar,
		ViewedAt: r.now().UTC(),
	})
	persisted = kvstore.Write(ctx, r.store, viewersKey, viewers) && persisted
	return persisted, nil
}

// Viewers возвращает журнал просмотров в порядке первых просмотров;
// длина журнала — каноничное "просмотрели N".
func (r *StatusRepository) Viewers(ctx context.Context, statusID string) []model.StatusViewer {
	defer logger.DeferLogDuration("statusRepo.Viewers", time.Now())()
	return kvstore.Read(ctx, r.store, viewersKeyPrefix+statusID, []model.StatusViewer{})
}
