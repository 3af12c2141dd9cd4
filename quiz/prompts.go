package quiz

import "fmt"

// RecognitionPrompt asks for the item inside the bag, ignoring the bag itself.
const RecognitionPrompt = `請仔細觀察這張圖片，辨識袋子裡面放著的物品。
請只針對「物品」回答（忽略袋子本身），用繁體中文簡潔回答：
物品可能是: (填寫物品名稱)
物品材質: (填寫材質)

注意：不要使用任何特殊符號如 * 或 - ，直接回答即可。`

// RecyclingRules is the reference sheet the quiz must follow (Taiwan EPA, 9 categories / 36 items).
const RecyclingRules = `【台灣環保署官方回收規定 - 9大類36項】

1. 容器類：鐵、鋁、玻璃、塑膠(1-7號)、紙容器(含鋁箔包、紙餐具)
   - 通用規則：「倒空、沖洗、壓扁」
   - 紙餐具規則：「清、分、疊」(清殘渣、分開放、疊合)

2. 塑膠辨識碼：
   - 1號PET：寶特瓶
   - 2號HDPE：鮮奶瓶、清潔劑瓶
   - 3號PVC：保鮮膜、水管
   - 4號LDPE：塑膠袋
   - 5號PP：豆漿瓶、微波容器
   - 6號PS：養樂多瓶、保麗龍
   - 7號OTHER：其他材質

3. 乾電池：錳鋅、鹼錳、鋰電池、鎳鎘、鎳氫、鈕扣電池
   - 務必從電子產品中取出單獨回收

4. 電子電器五大類：電視機、電冰箱、洗衣機、冷氣機、電風扇
   - 保持完整，不可私自拆解

5. 資訊物品：筆電、桌機、顯示器、印表機、鍵盤、平板
   - 保持完整，不可私自拆解

6. 照明光源：螢光燈管、省電燈泡、LED燈
   - 小心輕放避免破碎

7. 農藥容器：需「三沖三洗」後回收

8. 玻璃容器：若破碎需用厚紙包覆並註明「碎玻璃」

【非回收項目】陶瓷、木製家具、菸蒂、紙尿褲、髒污塑膠袋`

const quizTemplate = `根據以下物品描述，請依照台灣環保署官方規定設計一道回收選擇題。

%s

物品描述: %s

設計規則:
1. 題目必須依照上述官方規定出題
2. 四個選項 (A/B/C/D)：只有一個正確答案
3. 選項要有誘答性，但正確答案必須符合官方規定
4. 解說要簡短有力，不超過2句話
5. 不要使用任何特殊符號如 * 或 - 或 ** 等

格式範例：
QUESTION_START
題目...
QUESTION_END
OPTIONS_START
(A) ...
(B) ...
(C) ...
(D) ...
OPTIONS_END
ANSWER_START
A
ANSWER_END
EXPLANATION_START
✅ 正確做法說明
💡 小技巧
EXPLANATION_END`

// QuizPrompt embeds the recognised item description into the generation prompt.
func QuizPrompt(item string) string {
	return fmt.Sprintf(quizTemplate, RecyclingRules, item)
}
