package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/bizcore/internal/authorization"
	reservationdomain "github.com/smallbiznis/bizcore/internal/reservation/domain"
)

func (s *Server) registerReservationRoutes(biz *gin.RouterGroup) {
	resource[reservationdomain.ServiceProvider]{
		path:   "service-providers",
		object: authorization.ResourceServiceProvider,
		store:  s.reservationSvc.Providers(),
		filters: []filter{
			boolFilter("is_active", "is_active"),
			boolFilter("accepts_walk_ins", "accepts_walk_ins"),
			idFilter("user_id", "user_id"),
			searchFilter("name", "title"),
		},
	}.mount(s, biz)

	reservations := resource[reservationdomain.Reservation]{
		path:   "reservations",
		object: authorization.ResourceReservation,
		store:  s.reservationSvc.Reservations(),
		filters: []filter{
			idFilter("service_provider_id", "service_provider_id"),
			idFilter("customer_id", "customer_id"),
			textFilter("status", "status"),
			searchFilter("reservation_number", "customer_name", "customer_phone"),
			dateRange("start_datetime"),
		},
	}.mount(s, biz)

	write := s.authorize(authorization.ResourceReservation, authorization.ActionWrite)
	reservations.POST("/:id/confirm", write, s.ConfirmReservation)
	reservations.POST("/:id/status", write, s.ChangeReservationStatus)
	reservations.POST("/:id/deposit-paid", write, s.MarkDepositPaid)

	resource[reservationdomain.ReservationService]{
		path:    "reservation-services",
		object:  authorization.ResourceReservationService,
		store:   s.reservationSvc.Services(),
		filters: []filter{idFilter("reservation_id", "reservation_id"), idFilter("product_id", "product_id")},
	}.mount(s, biz)

	resource[reservationdomain.ReservationStatusHistory]{
		path:     "reservation-history",
		object:   authorization.ResourceReservation,
		store:    s.reservationSvc.History(),
		filters:  []filter{idFilter("reservation_id", "reservation_id")},
		readOnly: true,
	}.mount(s, biz)

	resource[reservationdomain.ProviderAvailability]{
		path:   "provider-availability",
		object: authorization.ResourceAvailability,
		store:  s.reservationSvc.Availability(),
		filters: []filter{
			idFilter("service_provider_id", "service_provider_id"),
			textFilter("availability_type", "availability_type"),
			dateRange("date"),
		},
	}.mount(s, biz)

	resource[reservationdomain.WaitingListEntry]{
		path:   "waiting-list",
		object: authorization.ResourceWaitingList,
		store:  s.reservationSvc.WaitingList(),
		filters: []filter{
			idFilter("service_provider_id", "service_provider_id"),
			idFilter("customer_id", "customer_id"),
			textFilter("status", "status"),
		},
	}.mount(s, biz)
}

func (s *Server) ConfirmReservation(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	notes, err := optionalNotes(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	reservation, err := s.reservationSvc.Confirm(c.Request.Context(), id, notes)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": reservation})
}

func (s *Server) ChangeReservationStatus(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	var req reservationdomain.StatusChange
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	reservation, err := s.reservationSvc.ChangeStatus(c.Request.Context(), id, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": reservation})
}

func (s *Server) MarkDepositPaid(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	reservation, err := s.reservationSvc.MarkDepositPaid(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": reservation})
}
