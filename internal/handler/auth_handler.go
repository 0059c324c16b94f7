/*
Package handler provides the HTTP handlers and routing setup for the Chatyni server.

This file contains the public account endpoints: registration and login.
*/
package handler

import (
	"net/http"

	"chatyni/internal/app/auth"
	"chatyni/internal/pkg/limiter"
	"chatyni/internal/pkg/req"
	"chatyni/internal/pkg/resp"
)

type RegisterInput struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// HandleRegister creates a new member account.
func HandleRegister(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input RegisterInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		_, customErr := deps.Auth.Register(r.Context(), auth.RegisterInput{
			Username: input.Username,
			Email:    input.Email,
			Password: input.Password,
			IP:       limiter.ClientIP(r),
		})
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		resp.RespondCreated(w, r, "User registered successfully.")
	}
}

// HandleLogin checks credentials and the ban gate and returns a bearer token.
func HandleLogin(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input LoginInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		token, customErr := deps.Auth.Login(r.Context(), input.Email, input.Password)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		resp.RespondSuccess(w, r, map[string]string{"token": token})
	}
}
