package repository

import (
	"fmt"
	"time"

	"github.com/rentwork/internal/model"
)

// Демо-диалоги первого запуска: поддержка площадки, арендодатель и
// работодатель. Вся история прочитана — бейджи нулевые.

const supportName = "Поддержка RentWork"

const supportWelcome = "Здравствуйте! Это поддержка RentWork. Здесь вы можете задать любой вопрос " +
	"об аренде жилья и вакансиях. Отвечаем ежедневно с 9:00 до 21:00."

// seedConversations строит демо-набор. now — момент засева; времена сообщений
// монотонно возрастают внутри каждого диалога.
func seedConversations(now time.Time) []model.Conversation {
	convs := []model.Conversation{
		{
			ID: "admin",
			With: model.Counterpart{
				ID:    "admin",
				Name:  supportName,
				Email: "support@rentwork.example",
				Role:  "support",
			},
			Messages: seedThread(now.Add(-48*time.Hour), []seedMsg{
				{supportWelcome, model.SenderSystem},
			}, "seed-admin"),
		},
		{
			ID: "landlord-demo",
			With: model.Counterpart{
				ID:     "landlord-demo",
				Name:   "Анна (2-комн. кв., Садовая 14)",
				Avatar: "/avatars/landlord-demo.png",
				Role:   "landlord",
			},
			Messages: seedThread(now.Add(-26*time.Hour), []seedMsg{
				{"Добрый день! Квартира ещё сдаётся?", model.SenderUser},
				{"Да, свободна с первого числа. Хотите посмотреть?", model.SenderOther},
				{"Хочу, удобно в субботу после обеда.", model.SenderUser},
				{"Договорились, жду в субботу в 15:00.", model.SenderOther},
			}, "seed-landlord"),
		},
		{
			ID: "employer-demo",
			With: model.Counterpart{
				ID:     "employer-demo",
				Name:   "Кофейня «Зерно» — бариста",
				Avatar: "/avatars/employer-demo.png",
				Role:   "employer",
			},
			Messages: seedThread(now.Add(-20*time.Hour), []seedMsg{
				{"Здравствуйте! Откликнулся на вакансию бариста.", model.SenderUser},
				{"Здравствуйте! Опыт работы с кофемашиной есть?", model.SenderOther},
				{"Полгода в сетевой кофейне.", model.SenderUser},
			}, "seed-employer"),
		},
	}
	for i := range convs {
		last := convs[i].Messages[len(convs[i].Messages)-1]
		convs[i].LastMessage = model.ProjectLastMessage(last)
	}
	return convs
}

type seedMsg struct {
	text   string
	sender model.Sender
}

// seedThread раскладывает прочитанные сообщения с шагом в минуту начиная с start.
func seedThread(start time.Time, msgs []seedMsg, idPrefix string) []model.Message {
	out := make([]model.Message, 0, len(msgs))
	for i, sm := range msgs {
		out = append(out, model.Message{
			ID:        fmt.Sprintf("%s-%d", idPrefix, i+1),
			Content:   sm.text,
			Timestamp: start.Add(time.Duration(i) * time.Minute),
			Read:      true,
			Sender:    sm.sender,
		})
	}
	return out
}
