package ginserver

import (
	"net/http"
	"strconv"

	gin "github.com/gin-gonic/gin"

	"hotelbook/internal/app/commands"
	"hotelbook/internal/app/dto"
	bookingapp "hotelbook/internal/app/handlers/booking"
	"hotelbook/internal/app/queries"
)

type BookingHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
}

type guestsRequest struct {
	Adults   int `json:"adults"`
	Children int `json:"children"`
}

type createBookingRequest struct {
	RoomID          string        `json:"roomId"`
	CheckIn         string        `json:"checkIn"`
	CheckOut        string        `json:"checkOut"`
	Guests          guestsRequest `json:"guests"`
	SpecialRequests string        `json:"specialRequests"`
}

func (h BookingHandler) Create(c *gin.Context) {
	requester, ok := requireRequester(c)
	if !ok {
		return
	}
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "request body must be a JSON booking")
		return
	}
	checkIn, err := parseDate("checkIn", req.CheckIn)
	if err != nil {
		renderError(c, err)
		return
	}
	checkOut, err := parseDate("checkOut", req.CheckOut)
	if err != nil {
		renderError(c, err)
		return
	}
	cmd := bookingapp.CreateBookingCommand{
		RoomID:          req.RoomID,
		CheckIn:         checkIn,
		CheckOut:        checkOut,
		Adults:          req.Guests.Adults,
		Children:        req.Guests.Children,
		SpecialRequests: req.SpecialRequests,
		Requester:       requester,
		IdempotencyKeyV: c.GetHeader("Idempotency-Key"),
	}
	result, err := commands.Dispatch[bookingapp.CreateBookingCommand, *dto.Booking](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h BookingHandler) ListMine(c *gin.Context) {
	requester, ok := requireRequester(c)
	if !ok {
		return
	}
	result, err := queries.Ask[bookingapp.ListMyBookingsQuery, *dto.BookingCollection](c.Request.Context(), h.Queries, bookingapp.ListMyBookingsQuery{Requester: requester})
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h BookingHandler) Get(c *gin.Context) {
	requester, ok := requireRequester(c)
	if !ok {
		return
	}
	q := bookingapp.GetBookingQuery{BookingID: c.Param("id"), Requester: requester}
	result, err := queries.Ask[bookingapp.GetBookingQuery, *dto.Booking](c.Request.Context(), h.Queries, q)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h BookingHandler) Cancel(c *gin.Context) {
	requester, ok := requireRequester(c)
	if !ok {
		return
	}
	cmd := bookingapp.CancelBookingCommand{BookingID: c.Param("id"), Requester: requester}
	result, err := commands.Dispatch[bookingapp.CancelBookingCommand, *dto.Booking](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type AdminBookingHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
}

func (h AdminBookingHandler) List(c *gin.Context) {
	requester, ok := requireAdmin(c)
	if !ok {
		return
	}
	start, err := parseOptionalDate("startDate", c.Query("startDate"))
	if err != nil {
		renderError(c, err)
		return
	}
	end, err := parseOptionalDate("endDate", c.Query("endDate"))
	if err != nil {
		renderError(c, err)
		return
	}
	limit, err := optionalInt(c, "limit")
	if err != nil {
		renderError(c, err)
		return
	}
	offset, err := optionalInt(c, "offset")
	if err != nil {
		renderError(c, err)
		return
	}
	q := bookingapp.ListAllBookingsQuery{
		Status:    c.Query("status"),
		RoomID:    c.Query("roomId"),
		StartDate: start,
		EndDate:   end,
		Limit:     limit,
		Offset:    offset,
		Requester: requester,
	}
	result, err := queries.Ask[bookingapp.ListAllBookingsQuery, *dto.BookingCollection](c.Request.Context(), h.Queries, q)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

func (h AdminBookingHandler) UpdateStatus(c *gin.Context) {
	requester, ok := requireAdmin(c)
	if !ok {
		return
	}
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Status == "" {
		badRequest(c, "status is required")
		return
	}
	cmd := bookingapp.TransitionBookingCommand{BookingID: c.Param("id"), Status: req.Status, Requester: requester}
	result, err := commands.Dispatch[bookingapp.TransitionBookingCommand, *dto.Booking](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type RoomHandler struct {
	Queries queries.Bus
}

func (h RoomHandler) Availability(c *gin.Context) {
	checkIn, err := parseDate("checkIn", c.Query("checkIn"))
	if err != nil {
		renderError(c, err)
		return
	}
	checkOut, err := parseDate("checkOut", c.Query("checkOut"))
	if err != nil {
		renderError(c, err)
		return
	}
	q := bookingapp.AvailabilityQuery{RoomID: c.Param("id"), CheckIn: checkIn, CheckOut: checkOut}
	result, err := queries.Ask[bookingapp.AvailabilityQuery, *dto.Availability](c.Request.Context(), h.Queries, q)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func optionalInt(c *gin.Context, name string) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, invalidInput(name + " must be a non-negative integer")
	}
	return n, nil
}
