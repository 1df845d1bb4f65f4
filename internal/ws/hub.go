// Package ws — синхронизатор контекстов: открытые вкладки/окна подключаются
// по WebSocket, каждая мутация хранилища применяется здесь и рассылается
// остальным контекстам типизированным событием. Гарантия — eventual:
// конкурирующие записи двух контекстов разрешаются как last-writer-wins.
package ws

import (
	"context"
	"sync"
	"time"

	"github.com/rentwork/internal/i18n"
	"github.com/rentwork/internal/kvstore"
	"github.com/rentwork/internal/logger"
	"github.com/rentwork/internal/model"
	"github.com/rentwork/internal/repository"
	"github.com/rentwork/internal/service"
)

// Notifier отправляет пуш-уведомления. Если nil — пуши не отправляются.
type Notifier interface {
	Notify(ctx context.Context, title, body string, data map[string]string)
}

type Hub struct {
	mu       sync.RWMutex
	clients  map[string]map[*Client]struct{} // contextID -> соединения
	total    int
	maxConns int

	// opMu сериализует мутации: репозитории работают в режиме
	// read-modify-write всего списка и сами ничего не блокируют.
	opMu sync.Mutex

	convRepo   *repository.ConversationRepository
	reactRepo  *repository.ReactionRepository
	favRepo    *repository.FavoriteRepository
	statusRepo *repository.StatusRepository

	// session — session-ярус для маркеров присутствия контекстов; может быть nil.
	session  kvstore.Store
	notifier Notifier

	register   chan *Client
	unregister chan *Client
	done       chan struct{}
}

func NewHub(
	convRepo *repository.ConversationRepository,
	reactRepo *repository.ReactionRepository,
	favRepo *repository.FavoriteRepository,
	statusRepo *repository.StatusRepository,
	session kvstore.Store,
	maxConns int,
	notifier Notifier,
) *Hub {
	if maxConns <= 0 {
		maxConns = 64
	}
	return &Hub{
		clients:    make(map[string]map[*Client]struct{}),
		maxConns:   maxConns,
		convRepo:   convRepo,
		reactRepo:  reactRepo,
		favRepo:    favRepo,
		statusRepo: statusRepo,
		session:    session,
		notifier:   notifier,
		register:   make(chan *Client, 16),
		unregister: make(chan *Client, 16),
		done:       make(chan struct{}),
	}
}

func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		}
	}
}

func (h *Hub) shutdown() {
	h.mu.Lock()
	allClients := make([]*Client, 0, h.total)
	for _, clients := range h.clients {
		for c := range clients {
			allClients = append(allClients, c)
		}
	}
	h.clients = make(map[string]map[*Client]struct{})
	h.total = 0
	h.mu.Unlock()

	// Сетевой I/O вне мьютекса.
	for _, c := range allClients {
		c.Close()
	}
	for _, c := range allClients {
		c.Wait()
	}
}

func (h *Hub) addClient(c *Client) {
	h.mu.Lock()
	if h.total >= h.maxConns {
		h.mu.Unlock()
		logger.Errorf("ws достигнут лимит контекстов (%d), отклоняем context=%s", h.maxConns, c.contextID)
		c.Close()
		return
	}
	if _, ok := h.clients[c.contextID]; !ok {
		h.clients[c.contextID] = make(map[*Client]struct{})
	}
	h.clients[c.contextID][c] = struct{}{}
	h.total++
	h.mu.Unlock()

	if h.session != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		kvstore.Write(ctx, h.session, "context:"+c.contextID, c.actor)
		cancel()
	}
	logger.Infof("ws контекст подключён context=%s actor=%s", c.contextID, c.actor.ID)
}

func (h *Hub) removeClient(c *Client) {
	h.mu.Lock()
	clients, ok := h.clients[c.contextID]
	if !ok {
		h.mu.Unlock()
		return
	}
	if _, exists := clients[c]; !exists {
		h.mu.Unlock()
		return
	}
	delete(clients, c)
	h.total--
	lastOfContext := len(clients) == 0
	if lastOfContext {
		delete(h.clients, c.contextID)
	}
	h.mu.Unlock()

	c.Close()

	if lastOfContext && h.session != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		kvstore.Remove(ctx, h.session, "context:"+c.contextID)
		cancel()
	}
}

// HandleMessage применяет мутацию, пришедшую от контекста по WebSocket.
func (h *Hub) HandleMessage(ctx context.Context, c *Client, msg IncomingMessage) {
	switch msg.Type {
	case EventNewMessage:
		h.handleNewMessage(ctx, c, msg)
	case EventConversationRead:
		h.handleConversationRead(ctx, c, msg)
	case EventReactionAdded:
		h.handleAddReaction(ctx, c, msg)
	case EventReactionRemoved:
		h.handleRemoveReaction(ctx, c, msg)
	case EventStatusViewed:
		h.handleStatusViewed(ctx, c, msg)
	default:
		h.sendToClient(c, OutgoingMessage{Type: EventError, Payload: "unknown event type"})
	}
}

func (h *Hub) handleNewMessage(ctx context.Context, c *Client, msg IncomingMessage) {
	defer logger.DeferLogDuration("ws.handleNewMessage", time.Now())()
	if msg.ConversationID == "" {
		h.sendToClient(c, OutgoingMessage{Type: EventError, Payload: "conversation_id required"})
		return
	}
	m, err := service.BuildOutgoing(msg.Text, msg.Attachment, model.SenderUser, time.Now())
	if err != nil {
		h.sendToClient(c, OutgoingMessage{Type: EventError, Payload: "empty message"})
		return
	}
	if _, err := h.AppendMessage(ctx, msg.ConversationID, m, c.contextID); err != nil {
		h.sendToClient(c, OutgoingMessage{Type: EventError, Payload: "conversation not found"})
	}
}

func (h *Hub) handleConversationRead(ctx context.Context, c *Client, msg IncomingMessage) {
	if msg.ConversationID == "" {
		return
	}
	if _, err := h.MarkConversationRead(ctx, msg.ConversationID, c.contextID); err != nil {
		h.sendToClient(c, OutgoingMessage{Type: EventError, Payload: "conversation not found"})
	}
}

func (h *Hub) handleAddReaction(ctx context.Context, c *Client, msg IncomingMessage) {
	if msg.MessageID == "" || msg.Emoji == "" {
		return
	}
	h.AddReaction(ctx, msg.MessageID, msg.Emoji, c.actor, c.contextID)
}

func (h *Hub) handleRemoveReaction(ctx context.Context, c *Client, msg IncomingMessage) {
	if msg.MessageID == "" || msg.Emoji == "" {
		return
	}
	h.RemoveReaction(ctx, msg.MessageID, msg.Emoji, c.actor, c.contextID)
}

func (h *Hub) handleStatusViewed(ctx context.Context, c *Client, msg IncomingMessage) {
	if msg.StatusID == "" {
		return
	}
	if err := h.ViewStatus(ctx, msg.StatusID, c.actor, c.contextID); err != nil {
		h.sendToClient(c, OutgoingMessage{Type: EventError, Payload: "status not found"})
	}
}

// AppendMessage — единая точка добавления сообщения (WebSocket и HTTP).
// Инициатору и остальным контекстам уходит message_appended; входящее
// непрочитанное сообщение собеседника дополнительно триггерит пуш.
func (h *Hub) AppendMessage(ctx context.Context, conversationID string, m model.Message, originContextID string) (model.Conversation, error) {
	h.opMu.Lock()
	conv, persisted, err := h.convRepo.Append(ctx, conversationID, m)
	h.opMu.Unlock()
	if err != nil {
		return model.Conversation{}, err
	}
	if !persisted {
		h.sendToContext(originContextID, OutgoingMessage{Type: EventWriteFailed, Payload: WriteFailedPayload{Operation: "append_message"}})
	}
	h.Broadcast("", OutgoingMessage{Type: EventMessageAppended, Payload: MessageAppendedPayload{
		ConversationID: conversationID,
		Message:        m,
		UnreadCount:    h.convRepo.UnreadCount(conv),
	}})

	if h.notifier != nil && !m.Sender.Outgoing() && !m.Read {
		body := m.Content
		switch model.Classify(m.Content) {
		case model.KindImage:
			body = i18n.T("push.image_message")
		case model.KindAudio:
			body = i18n.T("push.voice_message")
		}
		if body == "" {
			body = i18n.T("push.new_message")
		}
		if len(body) > 120 {
			body = body[:117] + "..."
		}
		data := map[string]string{"conversation_id": conversationID, "message_id": m.ID}
		go h.notifier.Notify(context.Background(), conv.With.Name, body, data)
	}
	return conv, nil
}

// MarkConversationRead — единая точка пометки прочитанным.
func (h *Hub) MarkConversationRead(ctx context.Context, conversationID, originContextID string) (model.Conversation, error) {
	h.opMu.Lock()
	conv, persisted, err := h.convRepo.MarkRead(ctx, conversationID)
	h.opMu.Unlock()
	if err != nil {
		return model.Conversation{}, err
	}
	if !persisted {
		h.sendToContext(originContextID, OutgoingMessage{Type: EventWriteFailed, Payload: WriteFailedPayload{Operation: "mark_read"}})
	}
	h.Broadcast(originContextID, OutgoingMessage{Type: EventConversationRead, Payload: ConversationReadPayload{ConversationID: conversationID}})
	return conv, nil
}

// AddReaction — единая точка добавления реакции.
func (h *Hub) AddReaction(ctx context.Context, messageID, emoji string, actor model.Identity, originContextID string) {
	h.opMu.Lock()
	persisted := h.reactRepo.Add(ctx, messageID, emoji, actor)
	h.opMu.Unlock()
	if !persisted {
		h.sendToContext(originContextID, OutgoingMessage{Type: EventWriteFailed, Payload: WriteFailedPayload{Operation: "add_reaction"}})
	}
	h.Broadcast(originContextID, OutgoingMessage{Type: EventReactionAdded, Payload: ReactionPayload{
		MessageID: messageID, Emoji: emoji, ActorID: actor.ID,
	}})
}

// RemoveReaction — единая точка удаления реакции.
func (h *Hub) RemoveReaction(ctx context.Context, messageID, emoji string, actor model.Identity, originContextID string) {
	h.opMu.Lock()
	persisted := h.reactRepo.Remove(ctx, messageID, emoji, actor.ID)
	h.opMu.Unlock()
	if !persisted {
		h.sendToContext(originContextID, OutgoingMessage{Type: EventWriteFailed, Payload: WriteFailedPayload{Operation: "remove_reaction"}})
	}
	h.Broadcast(originContextID, OutgoingMessage{Type: EventReactionRemoved, Payload: ReactionPayload{
		MessageID: messageID, Emoji: emoji, ActorID: actor.ID,
	}})
}

// ToggleFavorite — единая точка переключения избранного.
func (h *Hub) ToggleFavorite(ctx context.Context, msg model.Message, conversationID, conversationName, originContextID string) (nowFavorite bool) {
	h.opMu.Lock()
	nowFavorite, persisted := h.favRepo.Toggle(ctx, msg, conversationID, conversationName)
	h.opMu.Unlock()
	if !persisted {
		h.sendToContext(originContextID, OutgoingMessage{Type: EventWriteFailed, Payload: WriteFailedPayload{Operation: "toggle_favorite"}})
	}
	h.Broadcast(originContextID, OutgoingMessage{Type: EventFavoriteToggled, Payload: FavoriteToggledPayload{
		MessageID: msg.ID, Favorite: nowFavorite,
	}})
	return nowFavorite
}

// SetImportant — единая точка смены метки "важный".
func (h *Hub) SetImportant(ctx context.Context, conversationID string, important bool, originContextID string) error {
	h.opMu.Lock()
	persisted, err := h.convRepo.SetImportant(ctx, conversationID, important)
	h.opMu.Unlock()
	if err != nil {
		return err
	}
	if !persisted {
		h.sendToContext(originContextID, OutgoingMessage{Type: EventWriteFailed, Payload: WriteFailedPayload{Operation: "set_important"}})
	}
	h.Broadcast(originContextID, OutgoingMessage{Type: EventImportantChanged, Payload: ImportantChangedPayload{
		ConversationID: conversationID, Important: important,
	}})
	return nil
}

// CreateStatus — единая точка публикации статуса.
func (h *Hub) CreateStatus(ctx context.Context, author model.Identity, content, image, originContextID string) (model.Status, error) {
	h.opMu.Lock()
	st, persisted, err := h.statusRepo.Create(ctx, author, content, image)
	h.opMu.Unlock()
	if err != nil {
		return model.Status{}, err
	}
	if !persisted {
		h.sendToContext(originContextID, OutgoingMessage{Type: EventWriteFailed, Payload: WriteFailedPayload{Operation: "create_status"}})
	}
	h.Broadcast(originContextID, OutgoingMessage{Type: EventStatusCreated, Payload: StatusCreatedPayload{Status: st}})
	return st, nil
}

// ViewStatus — единая точка просмотра статуса.
func (h *Hub) ViewStatus(ctx context.Context, statusID string, viewer model.Identity, originContextID string) error {
	h.opMu.Lock()
	persisted, err := h.statusRepo.View(ctx, statusID, viewer)
	h.opMu.Unlock()
	if err != nil {
		return err
	}
	if !persisted {
		h.sendToContext(originContextID, OutgoingMessage{Type: EventWriteFailed, Payload: WriteFailedPayload{Operation: "view_status"}})
	}
	h.Broadcast(originContextID, OutgoingMessage{Type: EventStatusViewed, Payload: StatusViewedPayload{
		StatusID: statusID, ViewerID: viewer.ID,
	}})
	return nil
}

// LoadStatuses читает статусы с компакцией; если что-то вычищено,
// остальные контексты узнают об этом событием statuses_compacted.
func (h *Hub) LoadStatuses(ctx context.Context, originContextID string) []model.Status {
	h.opMu.Lock()
	statuses, droppedIDs := h.statusRepo.Load(ctx)
	h.opMu.Unlock()
	if len(droppedIDs) > 0 {
		h.Broadcast(originContextID, OutgoingMessage{Type: EventStatusesCompacted, Payload: StatusesCompactedPayload{DroppedIDs: droppedIDs}})
	}
	return statuses
}

// Broadcast рассылает событие всем контекстам, кроме исключённого
// (пустой exceptContextID — вообще всем).
func (h *Hub) Broadcast(exceptContextID string, msg OutgoingMessage) {
	h.mu.RLock()
	targets := make([]*Client, 0, h.total)
	for ctxID, clients := range h.clients {
		if ctxID == exceptContextID {
			continue
		}
		for c := range clients {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range targets {
		h.sendToClient(c, msg)
	}
}

func (h *Hub) sendToContext(contextID string, msg OutgoingMessage) {
	if contextID == "" {
		return
	}
	h.mu.RLock()
	clients, ok := h.clients[contextID]
	if !ok {
		h.mu.RUnlock()
		return
	}
	targets := make([]*Client, 0, len(clients))
	for c := range clients {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		h.sendToClient(c, msg)
	}
}

func (h *Hub) sendToClient(c *Client, msg OutgoingMessage) {
	select {
	case c.send <- msg:
	case <-c.done:
	default:
		// Backpressure: буфер клиента полон — закрываем медленный контекст.
		logger.Errorf("ws буфер отправки полон, закрываем контекст context=%s", c.contextID)
		c.Close()
	}
}

func (h *Hub) Register(c *Client) {
	select {
	case h.register <- c:
	case <-h.done:
		c.Close()
	}
}

func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}
