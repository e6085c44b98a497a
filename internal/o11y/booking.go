package o11y

import "github.com/prometheus/client_golang/prometheus"

// Admission outcomes.
const (
	OutcomeAdmitted  = "admitted"
	OutcomeRejected  = "rejected"
	OutcomeNoSeats   = "no_seats"
	OutcomeNotFound  = "not_found"
	OutcomeStoreFail = "error"
)

// BookingMetrics counts booking admission attempts by outcome and seats
// handed out. A nil *BookingMetrics records nothing.
type BookingMetrics struct {
	admissions *prometheus.CounterVec
	seats      prometheus.Counter
}

func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	m := &BookingMetrics{
		admissions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "booking_admissions_total",
				Help: "Booking admission attempts by outcome",
			},
			[]string{"outcome"},
		),
		seats: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "booked_seats_total",
			Help: "Seats reserved by admitted bookings",
		}),
	}
	reg.MustRegister(m.admissions, m.seats)
	return m
}

func (m *BookingMetrics) Admitted(seats int) {
	if m == nil {
		return
	}
	m.admissions.WithLabelValues(OutcomeAdmitted).Inc()
	m.seats.Add(float64(seats))
}

func (m *BookingMetrics) Refused(outcome string) {
	if m == nil {
		return
	}
	m.admissions.WithLabelValues(outcome).Inc()
}
