package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"euroassist/internal/config"
	"euroassist/internal/db"
	"euroassist/internal/domain"
	"euroassist/internal/llm"
	"euroassist/internal/repository"
	"euroassist/internal/service"
)

// cli_chat conversa con el asistente desde la terminal usando la misma
// orquestacion que la API (persistencia, titulo automatico, streaming).
func main() {
	email := flag.String("email", "cli@euroassist.local", "usuario dueño de los chats")
	chatID := flag.String("chat", "", "id de un chat existente; vacio crea uno nuevo")
	flag.Parse()

	ctx := context.Background()
	reader := bufio.NewReader(os.Stdin)

	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger := zap.NewExample()
	defer logger.Sync()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer pool.Close()

	llmClient, closer, err := llm.NewFromConfig(ctx, cfg, logger)
	if err != nil {
		log.Fatal(err)
	}
	defer closer.Close()

	userSvc := service.NewUserService(logger, repository.NewPgUserRepository(pool))
	assistant := service.NewAssistantService(logger, llmClient, cfg.LLMTimeout)
	chatSvc := service.NewChatService(logger,
		repository.NewPgChatRepository(pool),
		repository.NewPgMessageRepository(pool),
		assistant,
		nil,
	)

	user, err := userSvc.UpsertFederatedUser(ctx, service.FederatedProfile{
		Provider:  "cli",
		Subject:   strings.ToLower(strings.TrimSpace(*email)),
		Email:     *email,
		FirstName: "CLI",
	})
	if err != nil {
		log.Fatalf("usuario cli: %v", err)
	}

	chat, err := openChat(ctx, chatSvc, user, *chatID)
	if err != nil {
		log.Fatalf("abrir chat: %v", err)
	}

	fmt.Printf("---- %s (%s) ----\n", chat.Title, chat.ID)
	fmt.Println("Escribe 'salir' para terminar.")
	for {
		fmt.Print("Tu > ")
		text, err := reader.ReadString('\n')
		if err != nil {
			return
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		if strings.EqualFold(text, "salir") || strings.EqualFold(text, "exit") {
			fmt.Println("Saliendo del chat...")
			return
		}

		fmt.Print("EuroAssist > ")
		exchange, err := chatSvc.StreamMessage(ctx, user.ID, chat.ID, text, func(delta string) error {
			fmt.Print(delta)
			return nil
		})
		fmt.Println()
		switch {
		case err != nil:
			fmt.Printf("error: %v\n", err)
		case exchange.Partial():
			fmt.Printf("error: %s\n", exchange.Error.Message())
		}
	}
}

func openChat(ctx context.Context, chats *service.ChatService, user domain.User, chatID string) (domain.Chat, error) {
	if chatID == "" {
		return chats.CreateChat(ctx, user.ID, "")
	}
	detail, err := chats.GetChat(ctx, user.ID, chatID)
	if err != nil {
		if errors.Is(err, service.ErrChatNotFound) {
			return domain.Chat{}, fmt.Errorf("chat %s no existe para %s", chatID, user.Email)
		}
		return domain.Chat{}, err
	}
	for _, m := range detail.Messages {
		fmt.Printf("[%s] %s\n", m.Role, m.Content)
	}
	return detail.Chat, nil
}
