package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rentwork/internal/kvstore/memory"
	"github.com/rentwork/internal/middleware"
	"github.com/rentwork/internal/model"
	"github.com/rentwork/internal/repository"
	"github.com/rentwork/internal/search"
	"github.com/rentwork/internal/ws"
)

// testAPI поднимает роутер с хранилищем в памяти, как services/api, но без
// сервера и Redis.
func testAPI(t *testing.T) *httptest.Server {
	t.Helper()
	store := memory.New()
	session := memory.New()

	convRepo := repository.NewConversationRepository(store)
	reactRepo := repository.NewReactionRepository(store)
	favRepo := repository.NewFavoriteRepository(store)
	statusRepo := repository.NewStatusRepository(store)
	hub := ws.NewHub(convRepo, reactRepo, favRepo, statusRepo, session, 8, nil)

	hubCtx, hubCancel := context.WithCancel(context.Background())
	var hubWg sync.WaitGroup
	hubWg.Add(1)
	go func() {
		defer hubWg.Done()
		hub.Run(hubCtx)
	}()
	t.Cleanup(func() {
		hubCancel()
		hubWg.Wait()
	})

	staged := NewStagedAttachments(session, hub)
	convH := NewConversationHandler(convRepo, reactRepo, favRepo, staged, hub)
	msgH := NewMessageHandler(convRepo, reactRepo, favRepo, hub)
	statusH := NewStatusHandler(statusRepo, hub)
	searchH := NewSearchHandler(convRepo)

	r := chi.NewRouter()
	r.Use(middleware.Identity(model.Identity{ID: "local-user", Name: "Пользователь"}))
	r.Get("/api/conversations", convH.List)
	r.Get("/api/conversations/{id}", convH.Get)
	r.Post("/api/conversations/{id}/messages", convH.Send)
	r.Post("/api/conversations/{id}/read", convH.MarkRead)
	r.Put("/api/conversations/{id}/important", convH.SetImportant)
	r.Post("/api/conversations/{id}/messages/{messageID}/favorite", msgH.ToggleFavorite)
	r.Get("/api/messages/{messageID}/reactions", msgH.ListReactions)
	r.Post("/api/messages/{messageID}/reactions", msgH.AddReaction)
	r.Delete("/api/messages/{messageID}/reactions", msgH.RemoveReaction)
	r.Get("/api/favorites", msgH.ListFavorites)
	r.Get("/api/search", searchH.Advanced)
	r.Get("/api/statuses", statusH.List)
	r.Post("/api/statuses", statusH.Create)
	r.Post("/api/statuses/{id}/view", statusH.View)
	r.Get("/api/statuses/{id}/viewers", statusH.Viewers)
	r.Post("/api/attachments/staged", staged.Stage)
	r.Get("/api/attachments/staged", staged.Peek)
	r.Delete("/api/attachments/staged", staged.Discard)
	r.Get("/ws", NewWSHandler(hub, "*").ServeWS)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url string, body any, headers map[string]string) (*http.Response, []byte) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()
	var out bytes.Buffer
	_, err = out.ReadFrom(res.Body)
	require.NoError(t, err)
	return res, out.Bytes()
}

func firstConversationID(t *testing.T, srv *httptest.Server) string {
	t.Helper()
	res, body := doJSON(t, http.MethodGet, srv.URL+"/api/conversations", nil, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	var list []ConversationSummary
	require.NoError(t, json.Unmarshal(body, &list))
	require.NotEmpty(t, list)
	return list[0].ID
}

func TestConversations_ListAndGet(t *testing.T) {
	srv := testAPI(t)

	res, body := doJSON(t, http.MethodGet, srv.URL+"/api/conversations", nil, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	var list []ConversationSummary
	require.NoError(t, json.Unmarshal(body, &list))
	require.NotEmpty(t, list)

	res, body = doJSON(t, http.MethodGet, srv.URL+"/api/conversations/"+list[0].ID, nil, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	var detail ConversationDetail
	require.NoError(t, json.Unmarshal(body, &detail))
	assert.Equal(t, list[0].ID, detail.ID)
	assert.NotEmpty(t, detail.Messages)

	res, _ = doJSON(t, http.MethodGet, srv.URL+"/api/conversations/ghost", nil, nil)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)

	res, _ = doJSON(t, http.MethodGet, srv.URL+"/api/conversations?mode=bogus", nil, nil)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
}

func TestConversations_SendAndRead(t *testing.T) {
	srv := testAPI(t)
	convID := firstConversationID(t, srv)

	res, body := doJSON(t, http.MethodPost, srv.URL+"/api/conversations/"+convID+"/messages",
		SendMessageRequest{Text: "добрый день!"}, map[string]string{"X-Context-Id": "tab-1"})
	require.Equal(t, http.StatusCreated, res.StatusCode)
	var conv model.Conversation
	require.NoError(t, json.Unmarshal(body, &conv))
	last := conv.Messages[len(conv.Messages)-1]
	assert.Equal(t, "добрый день!", last.Content)
	assert.Equal(t, model.SenderUser, last.Sender)
	assert.True(t, last.Read)
	assert.Equal(t, model.ProjectLastMessage(last), conv.LastMessage)

	// пустая отправка отклоняется
	res, _ = doJSON(t, http.MethodPost, srv.URL+"/api/conversations/"+convID+"/messages",
		SendMessageRequest{Text: "   "}, nil)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)

	res, _ = doJSON(t, http.MethodPost, srv.URL+"/api/conversations/"+convID+"/read", nil, nil)
	assert.Equal(t, http.StatusOK, res.StatusCode)
}

func TestConversations_ImportantFilter(t *testing.T) {
	srv := testAPI(t)
	convID := firstConversationID(t, srv)

	res, _ := doJSON(t, http.MethodPut, srv.URL+"/api/conversations/"+convID+"/important",
		SetImportantRequest{Important: true}, nil)
	require.Equal(t, http.StatusNoContent, res.StatusCode)

	res, body := doJSON(t, http.MethodGet, srv.URL+"/api/conversations?mode=important", nil, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	var list []ConversationSummary
	require.NoError(t, json.Unmarshal(body, &list))
	require.Len(t, list, 1)
	assert.Equal(t, convID, list[0].ID)
	assert.True(t, list[0].Important)
}

func TestReactions_HTTPFlow(t *testing.T) {
	srv := testAPI(t)

	res, body := doJSON(t, http.MethodPost, srv.URL+"/api/messages/m-1/reactions",
		ReactionRequest{Emoji: "👍"}, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	var groups []model.ReactionGroup
	require.NoError(t, json.Unmarshal(body, &groups))
	require.Len(t, groups, 1)
	assert.Equal(t, 1, groups[0].Count)
	assert.Equal(t, []string{"local-user"}, groups[0].Actors)

	// актор из заголовков X-Actor-*
	res, body = doJSON(t, http.MethodPost, srv.URL+"/api/messages/m-1/reactions",
		ReactionRequest{Emoji: "👍"}, map[string]string{"X-Actor-Id": "guest", "X-Actor-Name": "Гость"})
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.NoError(t, json.Unmarshal(body, &groups))
	require.Len(t, groups, 1)
	assert.Equal(t, 2, groups[0].Count)

	res, body = doJSON(t, http.MethodDelete, srv.URL+"/api/messages/m-1/reactions",
		ReactionRequest{Emoji: "👍"}, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.NoError(t, json.Unmarshal(body, &groups))
	require.Len(t, groups, 1)
	assert.Equal(t, 1, groups[0].Count)

	res, _ = doJSON(t, http.MethodPost, srv.URL+"/api/messages/m-1/reactions", ReactionRequest{}, nil)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
}

func TestFavorites_HTTPFlow(t *testing.T) {
	srv := testAPI(t)
	convID := firstConversationID(t, srv)

	res, body := doJSON(t, http.MethodGet, srv.URL+"/api/conversations/"+convID, nil, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	var detail ConversationDetail
	require.NoError(t, json.Unmarshal(body, &detail))
	msgID := detail.Messages[0].ID

	res, body = doJSON(t, http.MethodPost,
		srv.URL+"/api/conversations/"+convID+"/messages/"+msgID+"/favorite", nil, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	var tog ToggleFavoriteResponse
	require.NoError(t, json.Unmarshal(body, &tog))
	assert.True(t, tog.Favorite)

	res, body = doJSON(t, http.MethodGet, srv.URL+"/api/favorites", nil, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	var favs []model.FavoriteMessage
	require.NoError(t, json.Unmarshal(body, &favs))
	require.Len(t, favs, 1)
	assert.Equal(t, msgID, favs[0].Message.ID)

	res, _ = doJSON(t, http.MethodPost,
		srv.URL+"/api/conversations/"+convID+"/messages/ghost/favorite", nil, nil)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}

func TestSearch_HTTP(t *testing.T) {
	srv := testAPI(t)
	convID := firstConversationID(t, srv)

	_, _ = doJSON(t, http.MethodPost, srv.URL+"/api/conversations/"+convID+"/messages",
		SendMessageRequest{Text: "уникальнаяфраза для поиска"}, nil)

	res, body := doJSON(t, http.MethodGet, srv.URL+"/api/search?q=уникальнаяфраза", nil, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	var hits []search.Hit
	require.NoError(t, json.Unmarshal(body, &hits))
	require.Len(t, hits, 1)
	assert.Equal(t, convID, hits[0].Conversation.ID)

	res, _ = doJSON(t, http.MethodGet, srv.URL+"/api/search", nil, nil)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
}

func TestStatuses_HTTPFlow(t *testing.T) {
	srv := testAPI(t)

	res, body := doJSON(t, http.MethodGet, srv.URL+"/api/statuses", nil, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "[]\n", string(body))

	res, body = doJSON(t, http.MethodPost, srv.URL+"/api/statuses",
		CreateStatusRequest{Content: "ищу смену на выходные"}, nil)
	require.Equal(t, http.StatusCreated, res.StatusCode)
	var st model.Status
	require.NoError(t, json.Unmarshal(body, &st))
	assert.Equal(t, "Пользователь", st.User)

	res, _ = doJSON(t, http.MethodPost, srv.URL+"/api/statuses", CreateStatusRequest{}, nil)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)

	res, _ = doJSON(t, http.MethodPost, srv.URL+"/api/statuses/"+st.ID+"/view", nil,
		map[string]string{"X-Actor-Id": "viewer-1", "X-Actor-Name": "Гость"})
	require.Equal(t, http.StatusNoContent, res.StatusCode)

	res, body = doJSON(t, http.MethodGet, srv.URL+"/api/statuses/"+st.ID+"/viewers", nil, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	var viewers []model.StatusViewer
	require.NoError(t, json.Unmarshal(body, &viewers))
	require.Len(t, viewers, 1)
	assert.Equal(t, "viewer-1", viewers[0].ID)

	res, _ = doJSON(t, http.MethodPost, srv.URL+"/api/statuses/ghost/view", nil, nil)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}

func TestStagedAttachment_HTTPFlow(t *testing.T) {
	srv := testAPI(t)
	convID := firstConversationID(t, srv)
	hdr := map[string]string{"X-Context-Id": "tab-1"}

	// без контекста — отказ
	res, _ := doJSON(t, http.MethodPost, srv.URL+"/api/attachments/staged",
		model.Attachment{Kind: model.AttachmentImage, URL: "https://cdn/x.png"}, nil)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)

	res, _ = doJSON(t, http.MethodPost, srv.URL+"/api/attachments/staged",
		model.Attachment{Kind: model.AttachmentImage, URL: "https://cdn/x.png"}, hdr)
	require.Equal(t, http.StatusNoContent, res.StatusCode)

	res, body := doJSON(t, http.MethodGet, srv.URL+"/api/attachments/staged", nil, hdr)
	require.Equal(t, http.StatusOK, res.StatusCode)
	var att model.Attachment
	require.NoError(t, json.Unmarshal(body, &att))
	assert.Equal(t, model.AttachmentImage, att.Kind)

	// отправка со staged-вложением забирает черновик
	res, body = doJSON(t, http.MethodPost, srv.URL+"/api/conversations/"+convID+"/messages",
		SendMessageRequest{UseStaged: true}, hdr)
	require.Equal(t, http.StatusCreated, res.StatusCode)
	var conv model.Conversation
	require.NoError(t, json.Unmarshal(body, &conv))
	last := conv.Messages[len(conv.Messages)-1]
	assert.Equal(t, model.KindImage, model.Classify(last.Content))

	res, _ = doJSON(t, http.MethodGet, srv.URL+"/api/attachments/staged", nil, hdr)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}
