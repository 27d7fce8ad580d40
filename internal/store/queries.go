package store

// SQL query constants organized by entity.
// All SQL lives here. PostgresStore methods reference these constants.

// Request queries.
const (
	baseRequestsSelect = `SELECT id, request_number, customer, items, total_estimated_price,
	final_price, assessment_details, bank, status, COALESCE(agreement_doc_path, ''), registration,
	created_at, updated_at, kit_sent_at, assessed_at, approved_at, rejected_at, paid_at, returned_at
FROM mail_buyback_requests`

	queryCreateRequest = `
		INSERT INTO mail_buyback_requests (
			request_number, customer, items, total_estimated_price,
			status, agreement_doc_path, created_at, updated_at
		) VALUES (
			@request_number, @customer, @items, @total_estimated_price,
			@status, @agreement_doc_path, now(), now()
		)
		RETURNING id, created_at, updated_at`

	queryGetRequest = baseRequestsSelect + `
		WHERE id = $1`

	queryGetRequestStatus = `
		SELECT status FROM mail_buyback_requests WHERE id = $1`

	queryDeleteRequest = `
		DELETE FROM mail_buyback_requests WHERE id = $1`

	queryListReturnedBefore = `
		SELECT id FROM mail_buyback_requests
		WHERE status = 'returned' AND returned_at < $1
		ORDER BY returned_at
		LIMIT $2`
)

// Registration queries.
const (
	queryCreateCustomer = `
		INSERT INTO customers (
			name, name_kana, email, phone, postal_code, address,
			birthday, occupation, id_document_path, created_at
		) VALUES (
			@name, @name_kana, @email, @phone, @postal_code, @address,
			@birthday, @occupation, @id_document_path, now()
		)
		RETURNING id, created_at`

	queryCreateBuyback = `
		INSERT INTO buybacks (
			customer_id, request_number, total_price, payment_method,
			model, storage, rank, imei,
			battery_percent, is_service_state, nw_status, camera_stain, camera_broken, repair_history,
			agreement_doc_path, bought_at
		) VALUES (
			@customer_id, @request_number, @total_price, @payment_method,
			@model, @storage, @rank, @imei,
			@battery_percent, @is_service_state, @nw_status, @camera_stain, @camera_broken, @repair_history,
			@agreement_doc_path, now()
		)
		RETURNING id, bought_at`

	queryCreateInventoryItem = `
		INSERT INTO inventory_items (
			model, storage, color, rank, imei, management_number,
			battery_percent, is_service_state, nw_status, camera_stain, camera_broken, repair_history,
			status, cost, buyback_id, created_at
		) VALUES (
			@model, @storage, @color, @rank, @imei, @management_number,
			@battery_percent, @is_service_state, @nw_status, @camera_stain, @camera_broken, @repair_history,
			@status, @cost, @buyback_id, now()
		)
		RETURNING id, created_at`

	queryCreateBuybackItem = `
		INSERT INTO buyback_items (
			buyback_id, inventory_id, buyback_price, sale_price, profit, margin_rate
		) VALUES (
			@buyback_id, @inventory_id, @buyback_price, @sale_price, @profit, @margin_rate
		)
		RETURNING id`

	querySetBuybackInventory = `
		UPDATE buybacks SET inventory_id = $2 WHERE id = $1`
)

// Price table queries.
const (
	queryListBasePrices = `
		SELECT model, storage, rank, price FROM base_prices`

	queryListBuybackDeductions = `
		SELECT model, storage, deduction_type, amount FROM deduction_rules`

	queryListResaleDeductions = `
		SELECT model, storage, deduction_type, amount FROM resale_deduction_rules`

	queryDeleteBasePrices        = `DELETE FROM base_prices`
	queryDeleteBuybackDeductions = `DELETE FROM deduction_rules`
	queryDeleteResaleDeductions  = `DELETE FROM resale_deduction_rules`

	queryInsertBasePrice = `
		INSERT INTO base_prices (model, storage, rank, price) VALUES ($1, $2, $3, $4)`

	queryInsertBuybackDeduction = `
		INSERT INTO deduction_rules (model, storage, deduction_type, amount) VALUES ($1, $2, $3, $4)`

	queryInsertResaleDeduction = `
		INSERT INTO resale_deduction_rules (model, storage, deduction_type, amount) VALUES ($1, $2, $3, $4)`
)
