package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"routelynk/internal/config"
	"routelynk/internal/logger"
	"routelynk/internal/models"

	"github.com/go-sql-driver/mysql"
)

type MySQLStore struct {
	db  *sql.DB
	log *logger.Logger
}

func NewMySQLStore(cfg config.DatabaseConfig, log *logger.Logger) (*MySQLStore, error) {
	log.LogDatabase("CONNECT", "mysql", fmt.Sprintf("Connecting to MySQL at %s:%s", cfg.Host, cfg.Port))

	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		cfg.Username, cfg.Password, cfg.Host, cfg.Port, cfg.Database)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		log.Error("DATABASE", "Failed to open MySQL connection: "+err.Error())
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.MaxLifetime)

	if err := db.Ping(); err != nil {
		log.Error("DATABASE", "Failed to ping MySQL: "+err.Error())
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &MySQLStore{db: db, log: log}

	if err := store.initTables(); err != nil {
		log.Error("DATABASE", "Failed to initialize tables: "+err.Error())
		return nil, fmt.Errorf("failed to initialize tables: %w", err)
	}

	log.LogDatabase("SUCCESS", "mysql", "MySQL connection established and tables initialized")
	return store, nil
}

func (s *MySQLStore) initTables() error {
	s.log.LogDatabase("MIGRATE", "mysql", "Creating tables if not exist")

	queries := []string{
		`CREATE TABLE IF NOT EXISTS users (
			email VARCHAR(255) PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			image VARCHAR(512),
			role VARCHAR(20) NOT NULL DEFAULT 'user',
			status VARCHAR(20) NOT NULL DEFAULT 'active',
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			last_login TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			INDEX idx_role (role)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci;`,

		`CREATE TABLE IF NOT EXISTS tickets (
			ticket_id VARCHAR(64) PRIMARY KEY,
			vendor_email VARCHAR(255) NOT NULL,
			title VARCHAR(255) NOT NULL,
			from_city VARCHAR(255) NOT NULL,
			to_city VARCHAR(255) NOT NULL,
			transport_type VARCHAR(50) NOT NULL,
			price DECIMAL(10,2) NOT NULL,
			quantity INT NOT NULL,
			departure_date VARCHAR(10) NOT NULL,
			departure_time VARCHAR(8) NOT NULL,
			description TEXT,
			perks TEXT,
			image VARCHAR(512),
			status VARCHAR(20) NOT NULL DEFAULT 'pending',
			is_advertised BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			INDEX idx_vendor (vendor_email),
			INDEX idx_status (status),
			INDEX idx_advertised (is_advertised),
			CONSTRAINT chk_quantity CHECK (quantity >= 0)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci;`,

		`CREATE TABLE IF NOT EXISTS bookings (
			booking_id VARCHAR(64) PRIMARY KEY,
			ticket_id VARCHAR(64) NOT NULL,
			user_email VARCHAR(255) NOT NULL,
			vendor_email VARCHAR(255) NOT NULL,
			quantity INT NOT NULL,
			status VARCHAR(20) NOT NULL DEFAULT 'pending',
			transaction_id VARCHAR(128),
			booked_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			INDEX idx_ticket (ticket_id),
			INDEX idx_user (user_email),
			INDEX idx_vendor (vendor_email),
			INDEX idx_status (status)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci;`,

		`CREATE TABLE IF NOT EXISTS payments (
			payment_id VARCHAR(64) PRIMARY KEY,
			booking_id VARCHAR(64) NOT NULL,
			ticket_id VARCHAR(64) NOT NULL,
			user_email VARCHAR(255) NOT NULL,
			vendor_email VARCHAR(255) NOT NULL,
			price DECIMAL(10,2) NOT NULL,
			quantity INT NOT NULL,
			transaction_id VARCHAR(128) NOT NULL,
			date TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			UNIQUE INDEX idx_transaction (transaction_id),
			INDEX idx_booking (booking_id),
			INDEX idx_vendor (vendor_email),
			INDEX idx_user (user_email)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci;`,
	}

	for _, query := range queries {
		if _, err := s.db.Exec(query); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	s.log.LogDatabase("SUCCESS", "mysql", "All tables ready")
	return nil
}

// --- Users ---

func (s *MySQLStore) UpsertUser(user *models.User) (*models.User, error) {
	s.log.LogDatabase("UPSERT", "users", fmt.Sprintf("Upserting user %s", user.Email))

	query := `
    INSERT INTO users (email, name, image, role, status, created_at, last_login)
    VALUES (?, ?, ?, ?, ?, ?, ?)
    ON DUPLICATE KEY UPDATE name = VALUES(name), image = VALUES(image), last_login = VALUES(last_login)
    `

	_, err := s.db.Exec(query,
		user.Email, user.Name, user.Image, user.Role, user.Status, user.CreatedAt, user.LastLogin,
	)
	if err != nil {
		s.log.Error("DATABASE", fmt.Sprintf("Failed to upsert user %s: %s", user.Email, err.Error()))
		return nil, fmt.Errorf("failed to upsert user: %w", err)
	}

	return s.GetUser(user.Email)
}

func (s *MySQLStore) GetUser(email string) (*models.User, error) {
	query := `
    SELECT email, name, image, role, status, created_at, last_login
    FROM users WHERE email = ?
    `

	user := &models.User{}
	err := s.db.QueryRow(query, email).Scan(
		&user.Email, &user.Name, &user.Image, &user.Role, &user.Status, &user.CreatedAt, &user.LastLogin,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		s.log.Error("DATABASE", fmt.Sprintf("Failed to get user %s: %s", email, err.Error()))
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return user, nil
}

func (s *MySQLStore) ListUsers() ([]*models.User, error) {
	query := `
    SELECT email, name, image, role, status, created_at, last_login
    FROM users ORDER BY created_at DESC
    `

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user := &models.User{}
		if err := rows.Scan(&user.Email, &user.Name, &user.Image, &user.Role, &user.Status, &user.CreatedAt, &user.LastLogin); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}

	return users, rows.Err()
}

func (s *MySQLStore) SetUserRole(email string, role models.Role) error {
	s.log.LogDatabase("UPDATE", "users", fmt.Sprintf("Setting role of %s to %s", email, role))

	result, err := s.db.Exec(`UPDATE users SET role = ? WHERE email = ?`, role, email)
	if err != nil {
		return fmt.Errorf("failed to set user role: %w", err)
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		if _, err := s.GetUser(email); err != nil {
			return err
		}
	}
	return nil
}

func (s *MySQLStore) MarkVendorFraud(email string) (int, error) {
	s.log.LogDatabase("TX", "users", fmt.Sprintf("Fraud cascade for vendor %s", email))

	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(`UPDATE users SET role = ? WHERE email = ?`, models.RoleFraud, email)
	if err != nil {
		return 0, fmt.Errorf("failed to mark user fraud: %w", err)
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		var exists int
		if err := tx.QueryRow(`SELECT COUNT(*) FROM users WHERE email = ?`, email).Scan(&exists); err != nil {
			return 0, fmt.Errorf("failed to check user: %w", err)
		}
		if exists == 0 {
			return 0, ErrNotFound
		}
	}

	result, err = tx.Exec(`UPDATE tickets SET status = ? WHERE vendor_email = ? AND status <> ?`,
		models.TicketRejected, email, models.TicketRejected)
	if err != nil {
		return 0, fmt.Errorf("failed to reject vendor tickets: %w", err)
	}
	rejected, _ := result.RowsAffected()

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit fraud cascade: %w", err)
	}

	s.log.LogDatabase("SUCCESS", "users", fmt.Sprintf("Vendor %s marked fraud, %d tickets rejected", email, rejected))
	return int(rejected), nil
}

// --- Tickets ---

const ticketColumns = `ticket_id, vendor_email, title, from_city, to_city, transport_type,
    price, quantity, departure_date, departure_time, description, perks, image,
    status, is_advertised, created_at`

func scanTicket(row interface{ Scan(...interface{}) error }) (*models.Ticket, error) {
	t := &models.Ticket{}
	err := row.Scan(
		&t.TicketID, &t.VendorEmail, &t.Title, &t.From, &t.To, &t.TransportType,
		&t.Price, &t.Quantity, &t.DepartureDate, &t.DepartureTime, &t.Description, &t.Perks, &t.Image,
		&t.Status, &t.IsAdvertised, &t.CreatedAt,
	)
	return t, err
}

func (s *MySQLStore) CreateTicket(ticket *models.Ticket) error {
	s.log.LogDatabase("INSERT", "tickets", fmt.Sprintf("Saving ticket %s", ticket.TicketID))

	query := `
    INSERT INTO tickets (` + ticketColumns + `)
    VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    `

	_, err := s.db.Exec(query,
		ticket.TicketID, ticket.VendorEmail, ticket.Title, ticket.From, ticket.To, ticket.TransportType,
		ticket.Price, ticket.Quantity, ticket.DepartureDate, ticket.DepartureTime, ticket.Description,
		ticket.Perks, ticket.Image, ticket.Status, ticket.IsAdvertised, ticket.CreatedAt,
	)
	if err != nil {
		s.log.Error("DATABASE", fmt.Sprintf("Failed to save ticket %s: %s", ticket.TicketID, err.Error()))
		return fmt.Errorf("failed to save ticket: %w", err)
	}

	return nil
}

func (s *MySQLStore) GetTicket(id string) (*models.Ticket, error) {
	ticket, err := scanTicket(s.db.QueryRow(`SELECT `+ticketColumns+` FROM tickets WHERE ticket_id = ?`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get ticket: %w", err)
	}
	return ticket, nil
}

// UpdateTicket applies the patch with the rejected-lock folded into the WHERE
// clause, so a concurrent rejection cannot slip an edit through.
func (s *MySQLStore) UpdateTicket(id string, patch *models.TicketPatch) (*models.Ticket, error) {
	s.log.LogDatabase("UPDATE", "tickets", fmt.Sprintf("Patching ticket %s", id))

	sets := []string{}
	args := []interface{}{}
	add := func(column string, value interface{}) {
		sets = append(sets, column+" = ?")
		args = append(args, value)
	}

	if patch.Title != nil {
		add("title", *patch.Title)
	}
	if patch.From != nil {
		add("from_city", *patch.From)
	}
	if patch.To != nil {
		add("to_city", *patch.To)
	}
	if patch.TransportType != nil {
		add("transport_type", *patch.TransportType)
	}
	if patch.Price != nil {
		add("price", *patch.Price)
	}
	if patch.Quantity != nil {
		add("quantity", *patch.Quantity)
	}
	if patch.DepartureDate != nil {
		add("departure_date", *patch.DepartureDate)
	}
	if patch.DepartureTime != nil {
		add("departure_time", *patch.DepartureTime)
	}
	if patch.Description != nil {
		add("description", *patch.Description)
	}
	if patch.Perks != nil {
		add("perks", *patch.Perks)
	}
	if patch.Image != nil {
		add("image", *patch.Image)
	}

	if len(sets) == 0 {
		return s.GetTicket(id)
	}

	query := `UPDATE tickets SET ` + strings.Join(sets, ", ") + ` WHERE ticket_id = ? AND status <> ?`
	args = append(args, id, models.TicketRejected)

	result, err := s.db.Exec(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to update ticket: %w", err)
	}

	if affected, _ := result.RowsAffected(); affected == 0 {
		// Distinguish a missing ticket, a rejected one, and a no-op patch.
		ticket, err := s.GetTicket(id)
		if err != nil {
			return nil, err
		}
		if ticket.Status == models.TicketRejected {
			return nil, ErrEditLocked
		}
		return ticket, nil
	}

	return s.GetTicket(id)
}

func (s *MySQLStore) DeleteTicket(id string) error {
	s.log.LogDatabase("DELETE", "tickets", fmt.Sprintf("Deleting ticket %s", id))

	result, err := s.db.Exec(`DELETE FROM tickets WHERE ticket_id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete ticket: %w", err)
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MySQLStore) SetTicketStatus(id string, status models.TicketStatus) error {
	s.log.LogDatabase("UPDATE", "tickets", fmt.Sprintf("Setting ticket %s status to %s", id, status))

	result, err := s.db.Exec(`UPDATE tickets SET status = ? WHERE ticket_id = ?`, status, id)
	if err != nil {
		return fmt.Errorf("failed to set ticket status: %w", err)
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		if _, err := s.GetTicket(id); err != nil {
			return err
		}
	}
	return nil
}

// SetTicketAdvertised holds the advertised rows locked while counting, so
// concurrent calls cannot both pass the cap check.
func (s *MySQLStore) SetTicketAdvertised(id string, advertised bool) (bool, error) {
	s.log.LogDatabase("TX", "tickets", fmt.Sprintf("Setting ticket %s advertised=%t", id, advertised))

	if !advertised {
		result, err := s.db.Exec(`UPDATE tickets SET is_advertised = FALSE WHERE ticket_id = ?`, id)
		if err != nil {
			return false, fmt.Errorf("failed to clear advertised flag: %w", err)
		}
		if affected, _ := result.RowsAffected(); affected == 0 {
			if _, err := s.GetTicket(id); err != nil {
				return false, err
			}
		}
		return true, nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var current models.TicketStatus
	var already bool
	err = tx.QueryRow(`SELECT status, is_advertised FROM tickets WHERE ticket_id = ? FOR UPDATE`, id).
		Scan(&current, &already)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, ErrNotFound
		}
		return false, fmt.Errorf("failed to load ticket: %w", err)
	}
	if already {
		return true, tx.Commit()
	}

	var count int
	if err := tx.QueryRow(`SELECT COUNT(*) FROM tickets WHERE is_advertised = TRUE FOR UPDATE`).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to count advertised tickets: %w", err)
	}
	if count >= models.AdvertisedLimit {
		s.log.LogDatabase("LIMIT", "tickets", fmt.Sprintf("Advertised cap reached (%d), ticket %s unchanged", count, id))
		return false, tx.Commit()
	}

	if _, err := tx.Exec(`UPDATE tickets SET is_advertised = TRUE WHERE ticket_id = ?`, id); err != nil {
		return false, fmt.Errorf("failed to set advertised flag: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit advertise: %w", err)
	}
	return true, nil
}

func (s *MySQLStore) SearchTickets(query *models.TicketQuery) (*models.TicketPage, error) {
	where := []string{"status = ?"}
	args := []interface{}{models.TicketApproved}

	if query.From != "" {
		where = append(where, "from_city LIKE CONCAT('%', ?, '%')")
		args = append(args, query.From)
	}
	if query.To != "" {
		where = append(where, "to_city LIKE CONCAT('%', ?, '%')")
		args = append(args, query.To)
	}
	if query.TransportType != "" {
		where = append(where, "transport_type = ?")
		args = append(args, query.TransportType)
	}

	whereClause := strings.Join(where, " AND ")

	var total int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM tickets WHERE `+whereClause, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count tickets: %w", err)
	}

	orderBy := "departure_date ASC"
	switch query.Sort {
	case models.SortPriceAsc:
		orderBy = "price ASC"
	case models.SortPriceDesc:
		orderBy = "price DESC"
	}

	page, pageSize := query.Page, query.PageSize
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 6
	}
	offset := (page - 1) * pageSize

	rows, err := s.db.Query(
		`SELECT `+ticketColumns+` FROM tickets WHERE `+whereClause+` ORDER BY `+orderBy+` LIMIT ? OFFSET ?`,
		append(args, pageSize, offset)...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search tickets: %w", err)
	}
	defer rows.Close()

	items := []*models.Ticket{}
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ticket: %w", err)
		}
		items = append(items, ticket)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	totalPages := (total + pageSize - 1) / pageSize
	return &models.TicketPage{Items: items, Total: total, Page: page, TotalPages: totalPages}, nil
}

func (s *MySQLStore) listTickets(query string, args ...interface{}) ([]*models.Ticket, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tickets: %w", err)
	}
	defer rows.Close()

	var tickets []*models.Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ticket: %w", err)
		}
		tickets = append(tickets, ticket)
	}
	return tickets, rows.Err()
}

func (s *MySQLStore) ListTicketsByVendor(email string) ([]*models.Ticket, error) {
	return s.listTickets(
		`SELECT `+ticketColumns+` FROM tickets WHERE vendor_email = ? ORDER BY created_at DESC`, email)
}

func (s *MySQLStore) ListAdvertisedTickets() ([]*models.Ticket, error) {
	return s.listTickets(
		`SELECT ` + ticketColumns + ` FROM tickets WHERE is_advertised = TRUE AND status = 'approved' ORDER BY created_at DESC`)
}

// --- Bookings ---

const bookingColumns = `booking_id, ticket_id, user_email, vendor_email, quantity, status, transaction_id, booked_at`

func scanBooking(row interface{ Scan(...interface{}) error }) (*models.Booking, error) {
	b := &models.Booking{}
	var txn sql.NullString
	err := row.Scan(&b.BookingID, &b.TicketID, &b.UserEmail, &b.VendorEmail, &b.Quantity, &b.Status, &txn, &b.BookedAt)
	if txn.Valid {
		b.TransactionID = txn.String
	}
	return b, err
}

func (s *MySQLStore) CreateBooking(booking *models.Booking) error {
	s.log.LogDatabase("INSERT", "bookings", fmt.Sprintf("Saving booking %s", booking.BookingID))

	query := `
    INSERT INTO bookings (booking_id, ticket_id, user_email, vendor_email, quantity, status, booked_at)
    VALUES (?, ?, ?, ?, ?, ?, ?)
    `

	_, err := s.db.Exec(query,
		booking.BookingID, booking.TicketID, booking.UserEmail, booking.VendorEmail,
		booking.Quantity, booking.Status, booking.BookedAt,
	)
	if err != nil {
		s.log.Error("DATABASE", fmt.Sprintf("Failed to save booking %s: %s", booking.BookingID, err.Error()))
		return fmt.Errorf("failed to save booking: %w", err)
	}

	return nil
}

func (s *MySQLStore) GetBooking(id string) (*models.Booking, error) {
	booking, err := scanBooking(s.db.QueryRow(`SELECT `+bookingColumns+` FROM bookings WHERE booking_id = ?`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return booking, nil
}

func (s *MySQLStore) listBookings(query string, args ...interface{}) ([]*models.Booking, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	defer rows.Close()

	var bookings []*models.Booking
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		bookings = append(bookings, booking)
	}
	return bookings, rows.Err()
}

func (s *MySQLStore) ListBookingsByUser(email string) ([]*models.Booking, error) {
	return s.listBookings(
		`SELECT `+bookingColumns+` FROM bookings WHERE user_email = ? ORDER BY booked_at DESC`, email)
}

func (s *MySQLStore) ListBookingsByVendor(email string) ([]*models.Booking, error) {
	return s.listBookings(
		`SELECT `+bookingColumns+` FROM bookings WHERE vendor_email = ? ORDER BY booked_at DESC`, email)
}

func (s *MySQLStore) SetBookingStatus(id string, from []models.BookingStatus, to models.BookingStatus) error {
	s.log.LogDatabase("UPDATE", "bookings", fmt.Sprintf("Moving booking %s to %s", id, to))

	placeholders := make([]string, len(from))
	args := []interface{}{to, id}
	for i, status := range from {
		placeholders[i] = "?"
		args = append(args, status)
	}

	query := `UPDATE bookings SET status = ? WHERE booking_id = ? AND status IN (` + strings.Join(placeholders, ", ") + `)`
	result, err := s.db.Exec(query, args...)
	if err != nil {
		return fmt.Errorf("failed to set booking status: %w", err)
	}

	if affected, _ := result.RowsAffected(); affected == 0 {
		if _, err := s.GetBooking(id); err != nil {
			return err
		}
		return ErrStatusConflict
	}
	return nil
}

// --- Payments ---

// RecordPayment runs the whole payment sequence inside one transaction:
// append-only payment insert, booking CAS to paid, and a guarded stock
// decrement. Any refused step rolls back everything.
func (s *MySQLStore) RecordPayment(payment *models.Payment) (*models.PaymentResult, error) {
	s.log.LogDatabase("TX", "payments", fmt.Sprintf("Recording payment %s for booking %s", payment.PaymentID, payment.BookingID))

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Step 1: append-only payment row. The unique index on transaction_id
	// makes a duplicate submission fail here instead of double-charging.
	_, err = tx.Exec(`
    INSERT INTO payments (payment_id, booking_id, ticket_id, user_email, vendor_email, price, quantity, transaction_id, date)
    VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		payment.PaymentID, payment.BookingID, payment.TicketID, payment.UserEmail, payment.VendorEmail,
		payment.Price, payment.Quantity, payment.TransactionID, payment.Date,
	)
	if err != nil {
		var mysqlErr *mysql.MySQLError
		if errors.As(err, &mysqlErr) && mysqlErr.Number == 1062 {
			return nil, &PaymentStepError{Step: "payment", Err: ErrDuplicateTransaction}
		}
		return nil, &PaymentStepError{Step: "payment", Err: err}
	}

	// Step 2: booking to paid, only from pending or accepted.
	result, err := tx.Exec(`
    UPDATE bookings SET status = ?, transaction_id = ?
    WHERE booking_id = ? AND status IN (?, ?)`,
		models.BookingPaid, payment.TransactionID, payment.BookingID,
		models.BookingPending, models.BookingAccepted,
	)
	if err != nil {
		return nil, &PaymentStepError{Step: "booking", Err: err}
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		var exists int
		if err := tx.QueryRow(`SELECT COUNT(*) FROM bookings WHERE booking_id = ?`, payment.BookingID).Scan(&exists); err != nil {
			return nil, &PaymentStepError{Step: "booking", Err: err}
		}
		if exists == 0 {
			return nil, &PaymentStepError{Step: "booking", Err: ErrNotFound}
		}
		return nil, &PaymentStepError{Step: "booking", Err: ErrStatusConflict}
	}

	// Step 3: guarded decrement. The quantity >= n condition is what keeps
	// concurrent payments from driving stock negative.
	result, err = tx.Exec(`
    UPDATE tickets SET quantity = quantity - ? WHERE ticket_id = ? AND quantity >= ?`,
		payment.Quantity, payment.TicketID, payment.Quantity,
	)
	if err != nil {
		return nil, &PaymentStepError{Step: "stock", Err: err}
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return nil, &PaymentStepError{Step: "stock", Err: ErrInsufficientStock}
	}

	booking, err := scanBooking(tx.QueryRow(`SELECT `+bookingColumns+` FROM bookings WHERE booking_id = ?`, payment.BookingID))
	if err != nil {
		return nil, fmt.Errorf("failed to reload booking: %w", err)
	}
	ticket, err := scanTicket(tx.QueryRow(`SELECT `+ticketColumns+` FROM tickets WHERE ticket_id = ?`, payment.TicketID))
	if err != nil {
		return nil, fmt.Errorf("failed to reload ticket: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit payment: %w", err)
	}

	s.log.LogDatabase("SUCCESS", "payments", fmt.Sprintf("Payment %s committed, ticket %s stock now %d",
		payment.PaymentID, ticket.TicketID, ticket.Quantity))
	return &models.PaymentResult{Payment: payment, Booking: booking, Ticket: ticket}, nil
}

func (s *MySQLStore) ListPaymentsByUser(email string) ([]*models.Payment, error) {
	rows, err := s.db.Query(`
    SELECT payment_id, booking_id, ticket_id, user_email, vendor_email, price, quantity, transaction_id, date
    FROM payments WHERE user_email = ? ORDER BY date DESC`, email)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	defer rows.Close()

	var payments []*models.Payment
	for rows.Next() {
		p := &models.Payment{}
		if err := rows.Scan(&p.PaymentID, &p.BookingID, &p.TicketID, &p.UserEmail, &p.VendorEmail,
			&p.Price, &p.Quantity, &p.TransactionID, &p.Date); err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

func (s *MySQLStore) VendorStats(email string) (*models.VendorStats, error) {
	s.log.LogDatabase("SELECT", "payments", fmt.Sprintf("Aggregating stats for vendor %s", email))

	stats := &models.VendorStats{}

	err := s.db.QueryRow(`
    SELECT COALESCE(SUM(price), 0), COALESCE(SUM(quantity), 0)
    FROM payments WHERE vendor_email = ?`, email).
		Scan(&stats.TotalRevenue, &stats.TotalSold)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate payments: %w", err)
	}

	if err := s.db.QueryRow(`SELECT COUNT(*) FROM tickets WHERE vendor_email = ?`, email).
		Scan(&stats.TotalAdded); err != nil {
		return nil, fmt.Errorf("failed to count tickets: %w", err)
	}

	if err := s.db.QueryRow(`SELECT COUNT(*) FROM bookings WHERE vendor_email = ? AND status = ?`,
		email, models.BookingPending).Scan(&stats.PendingRequests); err != nil {
		return nil, fmt.Errorf("failed to count pending bookings: %w", err)
	}

	return stats, nil
}

func (s *MySQLStore) HealthCheck() error {
	return s.db.Ping()
}

func (s *MySQLStore) Close() error {
	s.log.LogDatabase("CLOSE", "mysql", "Closing MySQL connection")
	return s.db.Close()
}
