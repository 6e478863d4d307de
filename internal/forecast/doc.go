// Package forecast fits an additive trend plus yearly seasonality model to
// a monthly price series and projects it forward.
//
// The trend is piecewise linear with potential changepoints spread over the
// first part of the history. Seasonality is a truncated Fourier series with
// a 365.25 day period. All coefficients are estimated together by ridge
// regression: the trend base is unpenalized, changepoint slope changes are
// shrunk hard toward zero and Fourier terms lightly. The solution is closed
// form, so the same series always yields the same forecast.
package forecast
