package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azqueue"
	"github.com/charmbracelet/log"

	"github.com/lucasgomesc1993/financas-api/internal/azure"
)

const defaultQueue = "invoice-events"

type QueuePublisher struct {
	client *azqueue.QueueClient
	name   string
	log    *log.Logger
}

func NewQueuePublisher(ctx context.Context, serviceURL, name string, logger *log.Logger) (*QueuePublisher, error) {
	if name == "" {
		name = defaultQueue
	}

	var svc *azqueue.ServiceClient
	if azure.IsLocal(serviceURL) {
		accName, key := azure.AzuriteCredentials()
		cred, err := azqueue.NewSharedKeyCredential(accName, key)
		if err != nil {
			return nil, fmt.Errorf("create shared key credential: %w", err)
		}
		svc, err = azqueue.NewServiceClientWithSharedKeyCredential(serviceURL, cred, nil)
		if err != nil {
			return nil, fmt.Errorf("create queue service client: %w", err)
		}
	} else {
		cred, err := azure.DefaultCredential()
		if err != nil {
			return nil, fmt.Errorf("create default azure credential: %w", err)
		}
		svc, err = azqueue.NewServiceClient(serviceURL, cred, nil)
		if err != nil {
			return nil, fmt.Errorf("create queue service client: %w", err)
		}
	}

	client := svc.NewQueueClient(name)
	if _, err := client.Create(ctx, nil); err != nil && !strings.Contains(err.Error(), "QueueAlreadyExists") {
		logger.Warn("create queue failed", "queue", name, "error", err)
	}

	logger.Info("queue publisher ready", "url", serviceURL, "queue", name)
	return &QueuePublisher{client: client, name: name, log: logger}, nil
}

func (p *QueuePublisher) Publish(ctx context.Context, e Event) error {
	msg, err := encode(e)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if _, err := p.client.EnqueueMessage(ctx, msg, nil); err != nil {
		return fmt.Errorf("enqueue to %s: %w", p.name, err)
	}
	p.log.Debug("event published", "queue", p.name, "type", e.Type, "invoice_id", e.InvoiceID)
	return nil
}
