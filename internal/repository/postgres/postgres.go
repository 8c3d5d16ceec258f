package postgres

import (
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/bookabot/internal/repository"
)

type customerRepository struct {
	db *sqlx.DB
}

type serviceRepository struct {
	db *sqlx.DB
}

type appointmentRepository struct {
	BaseRepository
}

type messageLogRepository struct {
	db *sqlx.DB
}

func NewCustomerRepository(db *sqlx.DB) repository.CustomerRepository {
	return &customerRepository{db: db}
}

func NewServiceRepository(db *sqlx.DB) repository.ServiceRepository {
	return &serviceRepository{db: db}
}

func NewAppointmentRepository(db *sqlx.DB) repository.AppointmentRepository {
	return &appointmentRepository{BaseRepository: NewBaseRepository(db)}
}

func NewMessageLogRepository(db *sqlx.DB) repository.MessageLogRepository {
	return &messageLogRepository{db: db}
}
