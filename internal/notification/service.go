package notification

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"iotmon/internal/config"
	"iotmon/internal/logging"
	"iotmon/internal/models"
)

const forwardTimeout = 30 * time.Second

// Forwarder hands one alert task to an outbound destination.
type Forwarder func(ctx context.Context, task models.Task) error

// Service queues live alerts and forwards each one to every registered
// destination on a fixed pool of workers.
type Service struct {
	logger     *logging.Logger
	config     config.Config
	tasks      chan models.Task
	ctx        context.Context
	cancel     context.CancelFunc
	wg         *sync.WaitGroup
	forwarders map[string]Forwarder
	names      []string
}

// New constructs a forwarding Service. The forwarders map is not copied and
// must not change after Start.
func New(logger *logging.Logger, cfg config.Config, forwarders map[string]Forwarder) *Service {
	ctx, cancel := context.WithCancel(context.Background())
	names := make([]string, 0, len(forwarders))
	for name := range forwarders {
		names = append(names, name)
	}
	sort.Strings(names)

	return &Service{
		logger:     logger,
		config:     cfg,
		tasks:      make(chan models.Task, cfg.Notification.QueueSize),
		ctx:        ctx,
		cancel:     cancel,
		forwarders: forwarders,
		names:      names,
	}
}

// Forwarders lists the registered destination names.
func (s *Service) Forwarders() []string {
	return append([]string(nil), s.names...)
}

// Start launches the worker pool.
func (s *Service) Start(wg *sync.WaitGroup) {
	s.wg = wg
	for i := 0; i < s.config.Notification.MaxWorkers; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}
}

// Stop cancels in-flight forwards and stops the workers. Queued tasks are dropped.
func (s *Service) Stop() {
	s.cancel()
}

// Deliver lets the Service sit behind the live alert channel.
func (s *Service) Deliver(alert models.Alert) {
	s.QueueAlert(alert)
}

// QueueAlert enqueues an alert without blocking; a full queue drops it.
func (s *Service) QueueAlert(alert models.Alert) {
	task := models.Task{
		RequestID:  uuid.NewString(),
		Alert:      alert,
		ReceivedAt: time.Now(),
	}
	select {
	case s.tasks <- task:
		s.logger.Debugf("Queued alert: request_id=%s alert_id=%s", task.RequestID, alert.ID)
	default:
		s.logger.Errorf("Queue full, dropping alert: request_id=%s alert_id=%s", task.RequestID, alert.ID)
	}
}

func (s *Service) worker(id int) {
	defer s.wg.Done()
	for {
		select {
		case <-s.ctx.Done():
			s.logger.Infof("Worker %d stopped", id)
			return
		case task := <-s.tasks:
			s.handleTask(task)
		}
	}
}

// handleTask forwards a task to every destination; one failure does not
// stop the others.
func (s *Service) handleTask(task models.Task) {
	log := s.logger.WithRequestID(task.RequestID)
	for _, name := range s.names {
		ctx, cancel := context.WithTimeout(s.ctx, forwardTimeout)
		err := s.forwarders[name](ctx, task)
		cancel()
		if err != nil {
			log.Errorf("Forward via %s failed: %v", name, err)
			continue
		}
		log.Infof("Alert %s forwarded via %s", task.Alert.ID, name)
	}
}
