package order

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/jhoicas/orderflow-api/internal/application/ports"
	"github.com/jhoicas/orderflow-api/internal/domain"
	"github.com/jhoicas/orderflow-api/internal/domain/entity"
	"github.com/jhoicas/orderflow-api/internal/domain/repository"
)

// Valores por defecto de la saga.
const (
	DefaultDeadline            = 30 * time.Second
	DefaultCompensationTimeout = 10 * time.Second
	DefaultGuardTTL            = time.Minute
)

// DefaultPriceTolerance diferencia absoluta máxima entre el precio enviado y el del catálogo.
var DefaultPriceTolerance = decimal.RequireFromString("0.01")

// State estado de un intento de colocación de orden.
type State string

const (
	StateStart            State = "start"
	StateUserVerified     State = "user_verified"
	StateProductsVerified State = "products_verified"
	StateStockChecked     State = "stock_checked"
	StateStockReserved    State = "stock_reserved"
	StateOrderPersisted   State = "order_persisted"
	StateAborted          State = "aborted"
)

// SagaConfig parámetros de la saga; los ceros toman los valores por defecto.
type SagaConfig struct {
	Deadline            time.Duration
	CompensationTimeout time.Duration
	PriceTolerance      decimal.Decimal
	GuardTTL            time.Duration
}

// PlaceOrderInput solicitud de colocación. AttemptID identifica el intento para reintentos seguros;
// vacío genera uno nuevo (sin posibilidad de replay).
type PlaceOrderInput struct {
	AttemptID       string
	UserID          string
	Items           []entity.OrderItem
	ShippingAddress entity.Address
}

// Saga coordina usuario, catálogo, inventario y OrderStore para colocar una orden todo-o-nada.
type Saga struct {
	users   ports.UserVerifier
	catalog ports.ProductCatalog
	stock   StockLedger
	orders  repository.OrderRepository
	guard   IdempotencyGuard
	cfg     SagaConfig
	log     zerolog.Logger
	now     func() time.Time
}

// NewSaga construye la saga. guard es opcional (nil).
func NewSaga(
	users ports.UserVerifier,
	catalog ports.ProductCatalog,
	stock StockLedger,
	orders repository.OrderRepository,
	guard IdempotencyGuard,
	cfg SagaConfig,
	log zerolog.Logger,
) *Saga {
	if cfg.Deadline <= 0 {
		cfg.Deadline = DefaultDeadline
	}
	if cfg.CompensationTimeout <= 0 {
		cfg.CompensationTimeout = DefaultCompensationTimeout
	}
	if !cfg.PriceTolerance.IsPositive() {
		cfg.PriceTolerance = DefaultPriceTolerance
	}
	if cfg.GuardTTL <= 0 {
		cfg.GuardTTL = DefaultGuardTTL
	}
	return &Saga{
		users:   users,
		catalog: catalog,
		stock:   stock,
		orders:  orders,
		guard:   guard,
		cfg:     cfg,
		log:     log.With().Str("component", "order_saga").Logger(),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// reservation línea ya reservada, pendiente de compensar si la saga no termina en éxito.
type reservation struct {
	index       int
	productID   string
	quantity    int
	referenceID string
}

// reservationIntent subconjunto de líneas ya reservadas durante la saga.
type reservationIntent struct {
	reserved []reservation
}

// PlaceOrder ejecuta la saga. Cualquier salida distinta de éxito libera las reservas hechas,
// aun si el llamador canceló el contexto. El error devuelto es siempre *domain.SagaError.
func (s *Saga) PlaceOrder(ctx context.Context, in PlaceOrderInput) (order *entity.Order, err error) {
	if lines, verr := validate(in); verr != nil {
		return nil, &domain.SagaError{Reason: domain.ReasonInvalidInput, Lines: lines, Err: verr}
	}
	attemptID := in.AttemptID
	if attemptID == "" {
		attemptID = uuid.New().String()
	}
	log := s.log.With().Str("attempt_id", attemptID).Str("user_id", in.UserID).Logger()

	if existing, rerr := s.replay(ctx, attemptID, in.UserID); rerr != nil || existing != nil {
		return existing, rerr
	}

	if s.guard != nil {
		ok, gerr := s.guard.Acquire(ctx, attemptID, s.cfg.GuardTTL)
		if gerr != nil {
			return nil, &domain.SagaError{Reason: domain.ReasonUnreachable,
				Err: fmt.Errorf("%w: guard de idempotencia: %v", domain.ErrUnreachable, gerr)}
		}
		if !ok {
			return nil, &domain.SagaError{Reason: domain.ReasonConflict,
				Err: fmt.Errorf("%w: el intento %s ya está en curso", domain.ErrConflict, attemptID)}
		}
		defer func() {
			if rerr := s.guard.Release(context.WithoutCancel(ctx), attemptID); rerr != nil {
				log.Warn().Err(rerr).Msg("no se pudo liberar el guard de idempotencia")
			}
		}()
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Deadline)
	defer cancel()

	intent := &reservationIntent{}
	committed := false
	defer func() {
		if committed {
			return
		}
		if cerr := s.compensate(ctx, log, intent); cerr != nil {
			var se *domain.SagaError
			if errors.As(err, &se) {
				se.Err = errors.Join(se.Err, cerr)
			}
		}
	}()

	state := StateStart
	step := func(next State) {
		log.Debug().Str("from", string(state)).Str("state", string(next)).Msg("transición de saga")
		state = next
	}
	abort := func(se *domain.SagaError) (*entity.Order, error) {
		log.Warn().Str("state", string(state)).Str("reason", string(se.Reason)).Err(se.Err).Msg("saga abortada")
		state = StateAborted
		return nil, se
	}

	products, se := s.verifyUserAndProducts(ctx, in)
	if se != nil {
		return abort(se)
	}
	step(StateUserVerified)

	if se := s.checkPrices(in.Items, products); se != nil {
		return abort(se)
	}
	step(StateProductsVerified)

	if se := s.checkStock(ctx, in.Items); se != nil {
		return abort(se)
	}
	step(StateStockChecked)

	for i, it := range in.Items {
		ref := referenceID(attemptID, i)
		r := reservation{index: i, productID: it.ProductID, quantity: it.Quantity, referenceID: ref}
		if rerr := s.stock.Reserve(ctx, it.ProductID, it.Quantity, ref); rerr != nil {
			if !definitiveRejection(rerr) {
				// la reserva pudo aplicarse sin que llegara la respuesta; liberar una referencia no reservada no tiene efecto
				intent.reserved = append(intent.reserved, r)
			}
			line := domain.OffendingLine{Index: i, ProductID: it.ProductID, Quantity: it.Quantity, Detail: rerr.Error()}
			return abort(s.reserveFailure(ctx, rerr, line))
		}
		intent.reserved = append(intent.reserved, r)
	}
	step(StateStockReserved)

	o := entity.NewOrder("", attemptID, in.UserID, in.Items, in.ShippingAddress, s.now())
	if perr := s.orders.Create(ctx, o); perr != nil {
		if errors.Is(perr, domain.ErrAlreadyExists) {
			// otra ejecución del mismo intento ya persistió: sus reservas son las mismas referencias
			existing, gerr := s.orders.GetByAttemptID(context.WithoutCancel(ctx), attemptID)
			if gerr == nil && existing != nil {
				committed = true
				log.Info().Str("order_id", existing.ID).Msg("intento ya persistido por otra ejecución")
				return existing, nil
			}
		}
		reason := domain.ReasonPersistenceFailed
		if isDeadline(ctx, perr) {
			reason = domain.ReasonDeadlineExceeded
		}
		return abort(&domain.SagaError{Reason: reason, Err: perr})
	}
	committed = true
	step(StateOrderPersisted)
	log.Info().Str("order_id", o.ID).Str("total", o.TotalPrice.String()).Int("items", len(o.Items)).Msg("orden colocada")
	return o, nil
}

// replay devuelve la orden ya persistida para el intento, si existe.
func (s *Saga) replay(ctx context.Context, attemptID, userID string) (*entity.Order, error) {
	existing, err := s.orders.GetByAttemptID(ctx, attemptID)
	if err != nil {
		return nil, &domain.SagaError{Reason: domain.ReasonPersistenceFailed, Err: err}
	}
	if existing == nil {
		return nil, nil
	}
	if existing.UserID != userID {
		return nil, &domain.SagaError{Reason: domain.ReasonInvalidInput,
			Err: fmt.Errorf("%w: el intento %s pertenece a otro usuario", domain.ErrInvalidInput, attemptID)}
	}
	s.log.Info().Str("attempt_id", attemptID).Str("order_id", existing.ID).Msg("intento repetido, se devuelve la orden existente")
	return existing, nil
}

// verifyUserAndProducts consulta usuario y catálogo en paralelo. Las llamadas son de solo lectura.
func (s *Saga) verifyUserAndProducts(ctx context.Context, in PlaceOrderInput) (map[string]*ports.ProductInfo, *domain.SagaError) {
	g, gctx := errgroup.WithContext(ctx)

	var valid bool
	var userErr error
	g.Go(func() error {
		valid, userErr = s.users.VerifyUser(gctx, in.UserID)
		return userErr
	})

	var mu sync.Mutex
	products := make(map[string]*ports.ProductInfo)
	productErrs := make(map[string]error)
	for _, id := range distinctProducts(in.Items) {
		g.Go(func() error {
			p, err := s.catalog.GetProduct(gctx, id)
			mu.Lock()
			defer mu.Unlock()
			if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrInvalidInput) {
				// el catálogo rechazó el id: cuenta como producto inexistente
				s.log.Debug().Str("product_id", id).Err(err).Msg("producto rechazado por el catálogo")
				products[id] = nil
				return nil
			}
			if err != nil {
				// no cancela la verificación de usuario: su error tiene prioridad
				productErrs[id] = err
				return nil
			}
			products[id] = p
			return nil
		})
	}
	_ = g.Wait()

	if userErr != nil {
		if isDeadline(ctx, userErr) {
			return nil, &domain.SagaError{Reason: domain.ReasonDeadlineExceeded, Err: userErr}
		}
		return nil, &domain.SagaError{Reason: domain.ReasonInvalidUser,
			Err: fmt.Errorf("verificación de usuario %s: %w", in.UserID, userErr)}
	}
	if !valid {
		return nil, &domain.SagaError{Reason: domain.ReasonInvalidUser,
			Err: fmt.Errorf("%w: usuario %s no válido", domain.ErrInvalidInput, in.UserID)}
	}
	if len(productErrs) > 0 {
		var lines []domain.OffendingLine
		var first error
		for i, it := range in.Items {
			if perr, ok := productErrs[it.ProductID]; ok {
				lines = append(lines, domain.OffendingLine{Index: i, ProductID: it.ProductID, Quantity: it.Quantity, Detail: perr.Error()})
				if first == nil {
					first = perr
				}
			}
		}
		if isDeadline(ctx, first) {
			return nil, &domain.SagaError{Reason: domain.ReasonDeadlineExceeded, Lines: lines, Err: first}
		}
		return nil, &domain.SagaError{Reason: domain.ReasonUnreachable, Lines: lines, Err: first}
	}
	return products, nil
}

// checkPrices exige que cada producto exista y que |precio enviado - precio catálogo| <= tolerancia.
func (s *Saga) checkPrices(items []entity.OrderItem, products map[string]*ports.ProductInfo) *domain.SagaError {
	var lines []domain.OffendingLine
	for i, it := range items {
		p := products[it.ProductID]
		switch {
		case p == nil:
			lines = append(lines, domain.OffendingLine{Index: i, ProductID: it.ProductID, Quantity: it.Quantity, Detail: "producto no encontrado"})
		case it.UnitPrice.Sub(p.Price).Abs().GreaterThan(s.cfg.PriceTolerance):
			lines = append(lines, domain.OffendingLine{Index: i, ProductID: it.ProductID, Quantity: it.Quantity,
				Detail: fmt.Sprintf("precio enviado %s, precio de catálogo %s", it.UnitPrice.String(), p.Price.String())})
		}
	}
	if len(lines) == 0 {
		return nil
	}
	return &domain.SagaError{Reason: domain.ReasonProductInvalid, Lines: lines,
		Err: fmt.Errorf("%w: %d línea(s) con producto o precio inválido", domain.ErrInvalidInput, len(lines))}
}

// checkStock consulta en paralelo la demanda agregada por producto; no reserva nada.
// Si falta stock lista todas las líneas de los productos sin disponible.
func (s *Saga) checkStock(ctx context.Context, items []entity.OrderItem) *domain.SagaError {
	demand := make(map[string]int)
	for _, it := range items {
		demand[it.ProductID] += it.Quantity
	}

	g, gctx := errgroup.WithContext(ctx)
	var mu sync.Mutex
	unavailable := make(map[string]bool)
	for productID, qty := range demand {
		g.Go(func() error {
			ok, err := s.stock.Check(gctx, productID, qty)
			if err != nil {
				return fmt.Errorf("consulta de stock de %s: %w", productID, err)
			}
			if !ok {
				mu.Lock()
				unavailable[productID] = true
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if isDeadline(ctx, err) {
			return &domain.SagaError{Reason: domain.ReasonDeadlineExceeded, Err: err}
		}
		return &domain.SagaError{Reason: domain.ReasonUnreachable, Err: err}
	}
	if len(unavailable) == 0 {
		return nil
	}
	var lines []domain.OffendingLine
	for i, it := range items {
		if unavailable[it.ProductID] {
			lines = append(lines, domain.OffendingLine{Index: i, ProductID: it.ProductID, Quantity: it.Quantity,
				Detail: fmt.Sprintf("demanda total %d sin disponible", demand[it.ProductID])})
		}
	}
	return &domain.SagaError{Reason: domain.ReasonInsufficientStock, Lines: lines,
		Err: fmt.Errorf("%w: %d producto(s) sin disponible", domain.ErrInsufficientStock, len(unavailable))}
}

func (s *Saga) reserveFailure(ctx context.Context, err error, line domain.OffendingLine) *domain.SagaError {
	lines := []domain.OffendingLine{line}
	switch {
	case errors.Is(err, domain.ErrInsufficientStock), errors.Is(err, domain.ErrNotFound):
		return &domain.SagaError{Reason: domain.ReasonInsufficientStock, Lines: lines,
			Err: fmt.Errorf("%w: reserva de %s", domain.ErrInsufficientStock, line.ProductID)}
	case errors.Is(err, domain.ErrInvalidState):
		return &domain.SagaError{Reason: domain.ReasonConflict, Lines: lines, Err: err}
	case errors.Is(err, domain.ErrInvalidInput):
		return &domain.SagaError{Reason: domain.ReasonInvalidInput, Lines: lines, Err: err}
	case isDeadline(ctx, err):
		return &domain.SagaError{Reason: domain.ReasonDeadlineExceeded, Lines: lines, Err: err}
	default:
		return &domain.SagaError{Reason: domain.ReasonUnreachable, Lines: lines, Err: err}
	}
}

// definitiveRejection indica que el ledger rechazó la reserva sin aplicarla.
func definitiveRejection(err error) bool {
	return errors.Is(err, domain.ErrInsufficientStock) ||
		errors.Is(err, domain.ErrNotFound) ||
		errors.Is(err, domain.ErrInvalidState) ||
		errors.Is(err, domain.ErrInvalidInput)
}

// compensate libera en orden inverso todo lo reservado. Usa un contexto desligado de la
// cancelación del llamador y acotado por CompensationTimeout.
func (s *Saga) compensate(ctx context.Context, log zerolog.Logger, intent *reservationIntent) error {
	if len(intent.reserved) == 0 {
		return nil
	}
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.CompensationTimeout)
	defer cancel()

	var errs []error
	for i := len(intent.reserved) - 1; i >= 0; i-- {
		r := intent.reserved[i]
		if err := s.stock.Release(cctx, r.productID, r.quantity, r.referenceID); err != nil {
			log.Error().Err(err).Int("line", r.index).Str("product_id", r.productID).Str("reference_id", r.referenceID).
				Int("quantity", r.quantity).Msg("compensación fallida: reserva colgante")
			errs = append(errs, fmt.Errorf("liberar %s (%s): %w", r.productID, r.referenceID, err))
			continue
		}
		log.Debug().Str("product_id", r.productID).Str("reference_id", r.referenceID).Msg("reserva compensada")
	}
	intent.reserved = nil
	return errors.Join(errs...)
}

// validate revisa la forma de la solicitud antes de cualquier efecto.
func validate(in PlaceOrderInput) ([]domain.OffendingLine, error) {
	var missing []string
	if strings.TrimSpace(in.UserID) == "" {
		missing = append(missing, "user_id")
	}
	if len(in.Items) == 0 {
		missing = append(missing, "items")
	}
	a := in.ShippingAddress
	for field, v := range map[string]string{
		"shipping_address.line1":       a.Line1,
		"shipping_address.city":        a.City,
		"shipping_address.state":       a.State,
		"shipping_address.postal_code": a.PostalCode,
		"shipping_address.country":     a.Country,
	} {
		if strings.TrimSpace(v) == "" {
			missing = append(missing, field)
		}
	}

	var lines []domain.OffendingLine
	for i, it := range in.Items {
		var detail string
		switch {
		case strings.TrimSpace(it.ProductID) == "":
			detail = "product_id requerido"
		case it.Quantity <= 0:
			detail = "quantity debe ser mayor a 0"
		case !it.UnitPrice.IsPositive():
			detail = "unit_price debe ser mayor a 0"
		}
		if detail != "" {
			lines = append(lines, domain.OffendingLine{Index: i, ProductID: it.ProductID, Quantity: it.Quantity, Detail: detail})
		}
	}
	if len(missing) == 0 && len(lines) == 0 {
		return nil, nil
	}
	if len(missing) > 0 {
		slices.Sort(missing)
		return lines, fmt.Errorf("%w: campos requeridos: %s", domain.ErrInvalidInput, strings.Join(missing, ", "))
	}
	return lines, fmt.Errorf("%w: %d línea(s) inválida(s)", domain.ErrInvalidInput, len(lines))
}

func distinctProducts(items []entity.OrderItem) []string {
	seen := make(map[string]bool, len(items))
	out := make([]string, 0, len(items))
	for _, it := range items {
		if !seen[it.ProductID] {
			seen[it.ProductID] = true
			out = append(out, it.ProductID)
		}
	}
	return out
}

// referenceID referencia de reserva por línea: dos líneas del mismo producto no se confunden.
func referenceID(attemptID string, line int) string {
	return fmt.Sprintf("%s:%d", attemptID, line)
}

func isDeadline(ctx context.Context, err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded)
}
