package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"bottlebank/geo"
	"bottlebank/models"
	"bottlebank/utils"

	"github.com/gin-gonic/gin"
)

// GeoHandler resolves addresses for job posting.
type GeoHandler struct {
	Geocoder geo.Geocoder
}

func NewGeoHandler(g geo.Geocoder) *GeoHandler {
	return &GeoHandler{Geocoder: g}
}

// GeocodeHandler resolves an address to a coordinate.
func (h *GeoHandler) GeocodeHandler(c *gin.Context) {
	address := c.Query("address")
	if address == "" {
		utils.JSONError(c, http.StatusBadRequest, "missing address", "Pass the address as ?address=.")
		return
	}

	point, err := h.Geocoder.Geocode(c.Request.Context(), address)
	if err != nil {
		if errors.Is(err, geo.ErrAddressNotFound) {
			utils.JSONError(c, http.StatusNotFound, "address not found", "Check the address spelling.")
			return
		}
		utils.JSONError(c, http.StatusBadGateway, "address lookup failed", "Please try again later.")
		return
	}
	c.JSON(http.StatusOK, point)
}

// ReverseGeocodeHandler resolves a coordinate to an address.
func (h *GeoHandler) ReverseGeocodeHandler(c *gin.Context) {
	lat, errLat := strconv.ParseFloat(c.Query("lat"), 64)
	lon, errLon := strconv.ParseFloat(c.Query("lon"), 64)
	if errLat != nil || errLon != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid coordinates", "Pass ?lat= and ?lon= as numbers.")
		return
	}

	address, err := h.Geocoder.ReverseGeocode(c.Request.Context(), models.GeoPoint{Latitude: lat, Longitude: lon})
	if err != nil {
		if errors.Is(err, geo.ErrAddressNotFound) {
			utils.JSONError(c, http.StatusNotFound, "no address at this location", "")
			return
		}
		utils.JSONError(c, http.StatusBadGateway, "address lookup failed", "Please try again later.")
		return
	}
	c.JSON(http.StatusOK, gin.H{"address": address})
}
