package controllers

import (
	"net/http"

	"github.com/easyshop/storefront-backend/api/responses"
	"github.com/easyshop/storefront-backend/api/validators"
	"github.com/easyshop/storefront-backend/internal/catalog"
	"github.com/easyshop/storefront-backend/pkg/logger"
)

func ListProducts(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter := catalog.ProductFilter{}

		categoryID, err := validators.QueryInt64(r, "cat")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filter.CategoryID = categoryID

		if filter.MinPrice, err = validators.QueryDecimal(r, "minPrice"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if filter.MaxPrice, err = validators.QueryDecimal(r, "maxPrice"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filter.Color = validators.QueryString(r, "color")

		products, err := svc.ListProducts(r.Context(), filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, products)
	}
}

func GetProduct(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.URLParamInt64(r, "productID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		product, err := svc.GetProduct(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}
