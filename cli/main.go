package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
)

func main() {
	// 1. 定义命令行参数
	action := flag.String("action", "create", "要执行的操作 (create / import_mnemonic / import_key / send / history / list)")
	password := flag.String("password", "", "钱包密码 (至少 8 位)")
	mnemonic := flag.String("mnemonic", "", "助记词 (import_mnemonic 时必填)")
	privateKey := flag.String("key", "", "私钥 (import_key 时必填)")
	chain := flag.String("chain", "ETH", "目标区块链 (例如: ETH, BSC, Polygon)")
	to := flag.String("to", "", "收款地址 (send 时必填)")
	amount := flag.String("amount", "", "转账金额，最小单位 (send 时必填)")
	token := flag.String("token", "native", "代币合约地址，native 表示原生代币")
	host := flag.String("host", "http://localhost:8888", "服务地址")
	flag.Parse()

	// 2. 根据操作选择 API 路径和请求体
	var (
		url         string
		method      = "POST"
		requestData map[string]interface{}
	)

	switch *action {
	case "create":
		url = *host + "/api/wallet/create"
		requestData = map[string]interface{}{"password": *password}
	case "import_mnemonic":
		url = *host + "/api/wallet/import_mnemonic"
		requestData = map[string]interface{}{"mnemonic": *mnemonic, "password": *password}
	case "import_key":
		url = *host + "/api/wallet/import_key"
		requestData = map[string]interface{}{"private_key": *privateKey, "password": *password}
	case "send":
		url = *host + "/api/transaction/send"
		requestData = map[string]interface{}{
			"chain":      *chain,
			"to_address": *to,
			"amount":     *amount,
			"token":      *token,
			"password":   *password,
		}
	case "history":
		url = *host + "/api/transaction/history"
		method = "GET"
	case "list":
		url = *host + "/api/wallets/list"
		method = "GET"
	default:
		log.Fatalf("错误: 不支持的操作: %s", *action)
	}

	// 3. 创建并发送 HTTP 请求
	var body io.Reader
	if requestData != nil {
		jsonData, err := json.Marshal(requestData)
		if err != nil {
			log.Fatalf("错误: 无法打包 JSON 数据: %v", err)
		}
		body = bytes.NewBuffer(jsonData)
		fmt.Printf("请求体: %s\n", string(jsonData))
	}

	req, err := http.NewRequest(method, url, body)
	if err != nil {
		log.Fatalf("错误: 无法创建请求: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{}
	fmt.Printf("正向 %s 发送请求...\n", url)

	resp, err := client.Do(req)
	if err != nil {
		log.Fatalf("错误: 发送请求失败: %v", err)
	}
	defer resp.Body.Close()

	// 4. 读取并打印响应结果
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Fatalf("错误: 读取响应体失败: %v", err)
	}

	fmt.Println("\n--- 响应结果 ---")
	fmt.Printf("HTTP 状态码: %d\n", resp.StatusCode)
	fmt.Printf("响应体: %s\n", string(respBody))
}
