package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

// Result 记录单次请求的 HTTP 结果，便于聚合统计。
type Result struct {
	Status int
	Body   string
	Err    error
}

func main() {
	baseURL := flag.String("base", "http://localhost:8080", "server base url")
	stock := flag.Int("stock", 50, "initial product stock created for the test")
	adminToken := flag.String("admin-token", "dev-admin-token", "admin token for stock preload endpoint")

	// 超卖测试参数：200 个客户并发抢购，各买 1 件
	nUsers := flag.Int("users", 200, "distinct clients")
	concurrency := flag.Int("c", 50, "max concurrency")
	flag.Parse()

	client := &http.Client{Timeout: 10 * time.Second}
	runID := time.Now().UnixNano()

	// 1) 准备农户与商品
	farmerToken := registerAndLogin(client, *baseURL, "farmer", fmt.Sprintf("farmer-%d@loadtest.local", runID))
	productID := createProduct(client, *baseURL, farmerToken, *stock, runID)
	fmt.Printf("created product %d with stock %d\n", productID, *stock)

	// 预热库存缓存，方便压测后直接查展示库存
	if err := doPOST(client, fmt.Sprintf("%s/api/stock/preload/%d", *baseURL, productID), "", nil, map[string]string{
		"X-Admin-Token": *adminToken,
	}); err != nil {
		panic(fmt.Sprintf("preload failed: %v", err))
	}

	// 2) 注册 N 个客户并登录拿令牌
	fmt.Printf("registering %d clients...\n", *nUsers)
	tokens := make([]string, *nUsers)
	for i := range tokens {
		tokens[i] = registerAndLogin(client, *baseURL, "client", fmt.Sprintf("client-%d-%d@loadtest.local", runID, i))
	}

	// 3) 不超卖测试：不同客户并发下单
	fmt.Printf("start oversell test: product=%d users=%d concurrency=%d\n", productID, *nUsers, *concurrency)
	results := runPlaceOrders(client, *baseURL, productID, tokens, *concurrency)
	printSummary("oversell", results)

	succeeded := 0
	for _, r := range results {
		if r.Status == http.StatusOK {
			succeeded++
		}
	}
	final, err := getStock(client, *baseURL, productID)
	if err != nil {
		fmt.Println("stock check err:", err)
	} else {
		fmt.Printf("succeeded=%d final stock=%d (expect %d)\n", succeeded, final, *stock-succeeded)
		if int(final) != *stock-succeeded {
			fmt.Println("!! stock mismatch, possible oversell or leak")
		}
	}

	// 4) 限流测试：同一个客户连续下单（更容易触发 429）
	fmt.Println("\nstart rate limit test: same client, 150 requests, concurrency 50")
	sameToken := make([]string, 150)
	for i := range sameToken {
		sameToken[i] = tokens[0]
	}
	results2 := runPlaceOrders(client, *baseURL, productID, sameToken, 50)
	printSummary("rate_limit", results2)
}

func registerAndLogin(client *http.Client, baseURL, role, email string) string {
	register := map[string]string{
		"role":     role,
		"name":     role + " loadtest",
		"email":    email,
		"password": "loadtest123",
		"contact":  "000-0000",
	}
	if err := doPOST(client, baseURL+"/api/users/register", "", register, nil); err != nil {
		panic(fmt.Sprintf("register %s: %v", email, err))
	}

	login := map[string]string{"email": email, "password": "loadtest123"}
	b, _ := json.Marshal(login)
	resp, err := client.Post(baseURL+"/api/users/login", "application/json", bytes.NewReader(b))
	if err != nil {
		panic(fmt.Sprintf("login %s: %v", email, err))
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 300 {
		panic(fmt.Sprintf("login %s: status=%d body=%s", email, resp.StatusCode, string(body)))
	}

	var out struct {
		Data struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &out); err != nil || out.Data.Token == "" {
		panic(fmt.Sprintf("login %s: bad response %s", email, string(body)))
	}
	return out.Data.Token
}

func createProduct(client *http.Client, baseURL, token string, stock int, runID int64) int {
	req := map[string]any{
		"name":     fmt.Sprintf("loadtest-tomato-%d", runID),
		"category": "vegetables",
		"price":    "3.50",
		"unit":     "kg",
		"quantity": stock,
	}
	b, _ := json.Marshal(req)
	httpReq, _ := http.NewRequest(http.MethodPost, baseURL+"/api/products", bytes.NewReader(b))
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+token)

	resp, err := client.Do(httpReq)
	if err != nil {
		panic(fmt.Sprintf("create product: %v", err))
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 300 {
		panic(fmt.Sprintf("create product: status=%d body=%s", resp.StatusCode, string(body)))
	}

	var out struct {
		Data struct {
			ID int `json:"id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &out); err != nil || out.Data.ID == 0 {
		panic(fmt.Sprintf("create product: bad response %s", string(body)))
	}
	return out.Data.ID
}

func runPlaceOrders(client *http.Client, baseURL string, productID int, tokens []string, concurrency int) []Result {
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup
	results := make([]Result, len(tokens))

	for i := range tokens {
		wg.Add(1)
		sem <- struct{}{}
		go func(idx int) {
			defer wg.Done()
			defer func() { <-sem }()
			results[idx] = placeOnce(client, baseURL, productID, tokens[idx])
		}(i)
	}

	wg.Wait()
	return results
}

func placeOnce(client *http.Client, baseURL string, productID int, token string) Result {
	req := map[string]any{
		"product_id":       productID,
		"quantity":         1,
		"delivery_address": "1 Loadtest Lane",
	}
	b, _ := json.Marshal(req)
	httpReq, _ := http.NewRequest(http.MethodPost, baseURL+"/api/orders", bytes.NewReader(b))
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+token)

	resp, err := client.Do(httpReq)
	if err != nil {
		return Result{Err: err}
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return Result{Status: resp.StatusCode, Body: string(body)}
}

// printSummary 聚合输出不同状态码分布。
func printSummary(name string, results []Result) {
	count := map[int]int{}
	errCount := 0
	for _, r := range results {
		if r.Err != nil {
			errCount++
			continue
		}
		count[r.Status]++
	}
	fmt.Printf("[%s] http status summary:\n", name)
	for _, code := range []int{200, 400, 401, 404, 429, 500} {
		if count[code] > 0 {
			fmt.Printf("  %d -> %d\n", code, count[code])
		}
	}
	if errCount > 0 {
		fmt.Printf("  errors -> %d\n", errCount)
	}
}

// doPOST 发送 POST 请求（支持附加请求头与 Bearer 令牌）。
func doPOST(client *http.Client, url, token string, body any, headers map[string]string) error {
	var r io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		r = bytes.NewReader(b)
	}
	req, _ := http.NewRequest(http.MethodPost, url, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("status=%d body=%s", resp.StatusCode, string(b))
	}
	return nil
}

// getStock 查询展示库存，用于压测后校验是否出现超卖。
func getStock(client *http.Client, baseURL string, productID int) (int64, error) {
	url := fmt.Sprintf("%s/api/stock/%d", baseURL, productID)
	resp, err := client.Get(url)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 300 {
		return 0, fmt.Errorf("status=%d body=%s", resp.StatusCode, string(b))
	}

	var out struct {
		Code int `json:"code"`
		Data struct {
			Stock int64 `json:"stock"`
		} `json:"data"`
	}
	if err := json.Unmarshal(b, &out); err != nil {
		return 0, err
	}
	return out.Data.Stock, nil
}
